package engine

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Id lengths for each collection.
const (
	ApplicationIDLength = 8
	TicketIDLength      = 6
)

const maxIDAttempts = 16

// NewID returns a random token of the given length that taken reports as unused.
func NewID(length int, taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := gonanoid.New(length)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate id: no free id of length %d after %d attempts", length, maxIDAttempts)
}
