package domain

import "github.com/google/uuid"

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return "session_" + uuid.New().String()
}

// NewSampleID returns a fresh identifier for a persisted sample record.
func NewSampleID() string {
	return "sample_" + uuid.New().String()
}
