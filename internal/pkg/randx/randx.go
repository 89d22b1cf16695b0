/*
Package randx provides generation and validation of the identifiers used on
the drawing protocol: UUID stroke ids and UUID entity ids.
*/
package randx

import (
	"github.com/google/uuid"
)

// StrokeID generates a fresh client-side stroke identifier. Stroke ids are
// UUID v4 strings; uniqueness within a room is what makes them usable as the
// reconciliation key between in-flight and persisted strokes.
func StrokeID() string {
	return uuid.New().String()
}

// IsValidID reports whether the given string parses as a UUID. Used to
// reject malformed room and stroke references before they reach storage.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
