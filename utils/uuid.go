package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered identifier (UUIDv7) so that rows created together stay
// close together in the primary key index. It falls back to a random UUID if the clock read fails.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
