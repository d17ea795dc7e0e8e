package memstore

import (
	"fmt"
	"sort"
	"sync"

	"alsampler/internal/adapter/vecmath"
	"alsampler/internal/domain"
	"alsampler/internal/port"
)

// MemoryStore is an in-memory EmbeddingSource, ClipWriter, SessionStore
// and SampleStore. Clips are returned in insertion order.
type MemoryStore struct {
	mu         sync.RWMutex
	clips      map[string]clip
	order      []string
	references map[domain.CategoryID][]domain.EmbeddingVector
	sessions   map[string]domain.Session
	labels     map[string][]port.LabelRecord
	samples    map[string][]port.StoredSample
}

type clip struct {
	dataset string
	vector  []float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clips:      make(map[string]clip),
		references: make(map[domain.CategoryID][]domain.EmbeddingVector),
		sessions:   make(map[string]domain.Session),
		labels:     make(map[string][]port.LabelRecord),
		samples:    make(map[string][]port.StoredSample),
	}
}

func (s *MemoryStore) UpsertClips(dataset string, records []port.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("clip id is required")
		}
		if _, ok := s.clips[rec.ID]; !ok {
			s.order = append(s.order, rec.ID)
		}
		s.clips[rec.ID] = clip{dataset: dataset, vector: rec.Vector}
	}
	return nil
}

func (s *MemoryStore) PutReferences(records []port.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec.Category == nil {
			return fmt.Errorf("reference %s has no category", rec.ID)
		}
		cat := domain.CategoryID(*rec.Category)
		s.references[cat] = append(s.references[cat], domain.EmbeddingVector{ID: rec.ID, Vector: rec.Vector})
	}
	return nil
}

func (s *MemoryStore) FetchPool(scope string, exclude map[string]struct{}, max int) ([]domain.EmbeddingVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pool []domain.EmbeddingVector
	for _, id := range s.order {
		if max > 0 && len(pool) >= max {
			break
		}
		if _, skip := exclude[id]; skip {
			continue
		}
		c := s.clips[id]
		if scope != "" && c.dataset != scope {
			continue
		}
		if !vecmath.IsValid(c.vector) {
			continue
		}
		pool = append(pool, domain.EmbeddingVector{ID: id, Vector: c.vector})
	}
	return pool, nil
}

func (s *MemoryStore) CreateSession(session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *MemoryStore) GetSession(id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, port.ErrNotFound)
	}
	return session, nil
}

func (s *MemoryStore) PutLabel(sessionID string, label port.LabelRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, port.ErrNotFound)
	}
	if _, ok := s.clips[label.ClipID]; !ok {
		return fmt.Errorf("clip %s: %w", label.ClipID, port.ErrNotFound)
	}
	labels := s.labels[sessionID]
	for i := range labels {
		if labels[i].ClipID == label.ClipID {
			labels[i] = label
			return nil
		}
	}
	s.labels[sessionID] = append(labels, label)
	return nil
}

func (s *MemoryStore) FetchLabels(sessionID string) ([]domain.LabeledSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, port.ErrNotFound)
	}
	out := make([]domain.LabeledSample, 0, len(s.labels[sessionID]))
	for _, l := range s.labels[sessionID] {
		out = append(out, domain.LabeledSample{
			Embedding:  domain.EmbeddingVector{ID: l.ClipID, Vector: s.clips[l.ClipID].vector},
			Categories: l.Categories,
			Negative:   l.Negative,
		})
	}
	return out, nil
}

func (s *MemoryStore) FetchTargetCategories(sessionID string) ([]domain.CategoryID, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Targets, nil
}

func (s *MemoryStore) FetchReferences(sessionID string) (domain.ReferenceSet, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make(domain.ReferenceSet, len(session.Targets))
	for _, cat := range session.Targets {
		refs[cat] = vecmath.FilterValidEmbeddings(s.references[cat])
	}
	return refs, nil
}

func (s *MemoryStore) SaveSamples(sessionID string, round int, records []domain.SampleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, port.ErrNotFound)
	}
	for _, rec := range records {
		s.samples[sessionID] = append(s.samples[sessionID], port.StoredSample{
			ID:     domain.NewSampleID(),
			Round:  round,
			Record: rec,
		})
	}
	sort.SliceStable(s.samples[sessionID], func(i, j int) bool {
		return s.samples[sessionID][i].Round < s.samples[sessionID][j].Round
	})
	return nil
}

func (s *MemoryStore) ListSamples(sessionID string) ([]port.StoredSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]port.StoredSample(nil), s.samples[sessionID]...), nil
}

func (s *MemoryStore) NextRound(sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	samples := s.samples[sessionID]
	if len(samples) == 0 {
		return 0, nil
	}
	return samples[len(samples)-1].Round + 1, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
