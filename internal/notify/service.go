// Package notify delivers scheduling-link SMS messages to participants.
//
// The lab backend emails the link itself; when it also hands the link back
// and the participant has a phone on file, OrderFlow optionally texts it.
// Dispatch is best effort and never fails a wizard operation.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// MinPhoneDigits is the minimum digit count for a dispatchable phone number.
const MinPhoneDigits = 6

var nonDigitRegex = regexp.MustCompile(`\D`)

// Service defines a pluggable scheduling-link delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone
	// number. Returns the canonicalized recipient or an error.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendSchedulingLink sends the scheduling link to a participant phone.
	SendSchedulingLink(ctx context.Context, to, link string) error
}

// CanonicalizePhone strips a phone number to digits and validates length.
func CanonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := nonDigitRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneDigits)
	}
	if recipient != canonical {
		slog.Debug("notify canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
