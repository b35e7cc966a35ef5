package chat

import (
	"github.com/google/uuid"
	"github.com/suPer8Hu/prompt-lab/internal/common"
)

// NewSessionID returns a ULID; session ids sort by creation time.
func NewSessionID() (string, error) {
	return common.NewULID()
}

// newTurnID returns a UUIDv7 so turns created in the same instant still
// order by id.
func newTurnID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
