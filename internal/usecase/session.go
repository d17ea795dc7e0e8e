package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"alsampler/internal/domain"
	"alsampler/internal/port"
)

// SessionUseCase drives labelling sessions: it fetches pools and labels,
// asks the engine for samples and persists them round by round.
type SessionUseCase struct {
	source   port.EmbeddingSource
	sessions port.SessionStore
	samples  port.SampleStore
	engine   *Engine
	metric   domain.Metric
	maxPool  int
	logger   *slog.Logger
}

// SessionBackend is the persistence a session needs: clip data plus
// session, label and sample records.
type SessionBackend interface {
	port.EmbeddingSource
	port.SessionStore
	port.SampleStore
}

// NewSessionUseCase creates a session use case. maxPool <= 0 fetches the
// whole dataset.
func NewSessionUseCase(store SessionBackend, engine *Engine, metric domain.Metric, maxPool int, logger *slog.Logger) *SessionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionUseCase{
		source:   store,
		sessions: store,
		samples:  store,
		engine:   engine,
		metric:   metric,
		maxPool:  maxPool,
		logger:   logger,
	}
}

// Create starts a session over dataset for the given target categories.
func (u *SessionUseCase) Create(dataset string, targets []domain.CategoryID) (domain.Session, error) {
	if len(targets) == 0 {
		return domain.Session{}, fmt.Errorf("at least one target category is required")
	}
	session := domain.Session{
		ID:        domain.NewSessionID(),
		Dataset:   dataset,
		Targets:   uniqueSorted(targets),
		CreatedAt: time.Now().UTC(),
	}
	if err := u.sessions.CreateSession(session); err != nil {
		return domain.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	u.logger.Info("session created", "session", session.ID, "dataset", dataset, "targets", len(session.Targets))
	return session, nil
}

// Label records the annotator's answer for one clip. A negative label
// must not name categories.
func (u *SessionUseCase) Label(sessionID, clipID string, categories []domain.CategoryID, negative bool) error {
	if negative && len(categories) > 0 {
		return fmt.Errorf("a negative label cannot name categories")
	}
	if !negative && len(categories) == 0 {
		return fmt.Errorf("label %s with at least one category or as negative", clipID)
	}
	return u.sessions.PutLabel(sessionID, port.LabelRecord{
		ClipID:     clipID,
		Categories: uniqueSorted(categories),
		Negative:   negative,
	})
}

// SampleResult is the outcome of one Sample call.
type SampleResult struct {
	Round         int
	PoolSize      int
	Samples       []domain.SampleRecord
	Metrics       map[domain.CategoryID]domain.CategoryMetrics
	Distributions map[domain.CategoryID]domain.ScoreDistribution
}

// Sample proposes the next round of clips for the session. Round 0 uses
// the reference embeddings; later rounds train on the accumulated labels.
// Clips that were labelled or sampled before are never proposed again.
// Samples are persisted before returning.
func (u *SessionUseCase) Sample(sessionID string) (*SampleResult, error) {
	session, err := u.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	round, err := u.samples.NextRound(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample rounds: %w", err)
	}

	labels, err := u.source.FetchLabels(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch labels: %w", err)
	}
	exclude, err := u.seen(sessionID, labels)
	if err != nil {
		return nil, err
	}

	pool, err := u.source.FetchPool(session.Dataset, exclude, u.maxPool)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool: %w", err)
	}

	result := &SampleResult{Round: round, PoolSize: len(pool)}
	if round == 0 {
		refs, err := u.source.FetchReferences(sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch references: %w", err)
		}
		result.Samples, _, err = u.engine.ComputeInitialSamples(refs, pool, u.metric)
		if err != nil {
			return nil, fmt.Errorf("initial sampling failed: %w", err)
		}
	} else {
		targets, err := u.source.FetchTargetCategories(sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch targets: %w", err)
		}
		iter, err := u.engine.RunIteration(labels, targets, pool, nil)
		if err != nil {
			return nil, fmt.Errorf("iteration failed: %w", err)
		}
		result.Samples = iter.Samples
		result.Metrics = iter.Metrics
		result.Distributions = iter.Distributions
	}

	if err := u.samples.SaveSamples(sessionID, round, result.Samples); err != nil {
		return nil, fmt.Errorf("failed to save samples: %w", err)
	}
	u.logger.Info("samples proposed",
		"session", sessionID,
		"round", round,
		"pool", len(pool),
		"samples", len(result.Samples))
	return result, nil
}

// History returns every persisted sample of the session.
func (u *SessionUseCase) History(sessionID string) ([]port.StoredSample, error) {
	if _, err := u.sessions.GetSession(sessionID); err != nil {
		return nil, err
	}
	return u.samples.ListSamples(sessionID)
}

func (u *SessionUseCase) seen(sessionID string, labels []domain.LabeledSample) (map[string]struct{}, error) {
	previous, err := u.samples.ListSamples(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	exclude := make(map[string]struct{}, len(previous)+len(labels))
	for _, s := range previous {
		exclude[s.Record.ClipID] = struct{}{}
	}
	for _, l := range labels {
		exclude[l.Embedding.ID] = struct{}{}
	}
	return exclude, nil
}
