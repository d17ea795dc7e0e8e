package port

import "alsampler/internal/domain"

// SampleStore persists proposed samples per session and round.
type SampleStore interface {
	SaveSamples(sessionID string, round int, records []domain.SampleRecord) error

	ListSamples(sessionID string) ([]StoredSample, error)

	// NextRound returns 0 for a session with no samples yet.
	NextRound(sessionID string) (int, error)
}

// StoredSample is a persisted SampleRecord.
type StoredSample struct {
	ID     string
	Round  int
	Record domain.SampleRecord
}
