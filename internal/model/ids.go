package model

import "github.com/google/uuid"

// NewArtifactID generates a UUIDv7 artifact id.
// UUIDv7 is time-ordered, so ids sort by creation time.
func NewArtifactID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewVersionID generates a UUIDv7 version id.
func NewVersionID() string {
	return uuid.Must(uuid.NewV7()).String()
}
