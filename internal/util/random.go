// Package util provides utility functions for the OrderFlow application.
package util

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified
// length. Uses math/rand/v2; these IDs are identifiers, not secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// NewSessionID generates a unique wizard session ID with "sess_" prefix.
func NewSessionID() string {
	return GenerateRandomID("sess_", 32)
}

// NewRequestID generates the idempotency key sent with a final order
// submission. UUIDs keep it globally unique across service restarts.
func NewRequestID() string {
	return uuid.NewString()
}
