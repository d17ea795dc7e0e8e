package port

import "alsampler/internal/domain"

// EmbeddingSource supplies clip embeddings, references and labels.
// Implementations drop degenerate embeddings from pools.
type EmbeddingSource interface {
	// FetchPool returns clip embeddings in scope, skipping exclude.
	// An empty scope means every dataset; max <= 0 means no limit.
	FetchPool(scope string, exclude map[string]struct{}, max int) ([]domain.EmbeddingVector, error)

	// FetchLabels returns every label recorded for the session.
	FetchLabels(sessionID string) ([]domain.LabeledSample, error)

	// FetchTargetCategories returns the categories the session is training.
	FetchTargetCategories(sessionID string) ([]domain.CategoryID, error)

	// FetchReferences returns the reference embeddings of the session's targets.
	FetchReferences(sessionID string) (domain.ReferenceSet, error)
}

// ClipWriter loads imported embeddings into a store.
type ClipWriter interface {
	// UpsertClips stores clip embeddings under dataset, replacing existing ids.
	UpsertClips(dataset string, records []EmbeddingRecord) error

	// PutReferences stores reference embeddings; every record needs a Category.
	PutReferences(records []EmbeddingRecord) error
}
