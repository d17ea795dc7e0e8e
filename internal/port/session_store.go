package port

import "alsampler/internal/domain"

// SessionStore records labelling sessions and their labels.
type SessionStore interface {
	CreateSession(session domain.Session) error

	GetSession(id string) (domain.Session, error)

	PutLabel(sessionID string, label LabelRecord) error
}

// LabelRecord is a label as stored: it points at a clip by id.
type LabelRecord struct {
	ClipID     string              `json:"clip_id"`
	Categories []domain.CategoryID `json:"categories"`
	Negative   bool                `json:"negative"`
}
