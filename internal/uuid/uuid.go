// Package uuid provides UUID generation and validation for device and
// record identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// New generates a new UUID v4 string.
func New() string {
	return uuid.New().String()
}

// IsValid checks if s is a canonical dashed UUID of any version. Devices
// generate their own identifiers, so the server accepts any RFC 4122 form
// rather than insisting on v4.
func IsValid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Validate returns an error if s is not a valid UUID.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid uuid %q", s)
	}
	return nil
}
