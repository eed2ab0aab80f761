package uid

import (
	"strings"

	"github.com/google/uuid"
)

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Short returns the first n hex digits of id in upper case, for display
// names such as "Guest-3F9A2C". Ids shorter than n are returned whole.
func Short(id string, n int) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > n {
		id = id[:n]
	}
	return strings.ToUpper(id)
}
