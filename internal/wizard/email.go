package wizard

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// maxScanDepth bounds the fallback scan over a company record. Backend
// company objects are shallow; anything deeper is not an email we want.
const maxScanDepth = 6

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// IsEmail reports whether s looks like a single email address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// DeriveCompanyEmail resolves a best-guess contact email for a company.
//
// The structured candidate fields are tried in a fixed order first. If none
// holds a valid email the raw record is scanned depth-first for the first
// email-shaped string, bounded by maxScanDepth and cycle-safe via a visited
// set. Backend company schemas are inconsistent enough that the fallback
// earns its keep. Returns "" when nothing matches.
func DeriveCompanyEmail(c models.Company) string {
	for _, candidate := range []string{c.ContactEmail, c.CompanyEmail, c.PrimaryEmail, c.Email} {
		if IsEmail(candidate) {
			return strings.TrimSpace(candidate)
		}
	}
	visited := make(map[uintptr]bool)
	return scanForEmail(c.Raw, 0, visited)
}

// scanForEmail walks decoded JSON values looking for the first string that
// matches the email shape. Map iteration order is randomized, so within a
// level the keys are visited in sorted order to keep the result stable.
func scanForEmail(v interface{}, depth int, visited map[uintptr]bool) string {
	if depth > maxScanDepth || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		if IsEmail(val) {
			return strings.TrimSpace(val)
		}
	case map[string]interface{}:
		ptr := reflect.ValueOf(val).Pointer()
		if visited[ptr] {
			return ""
		}
		visited[ptr] = true
		for _, k := range sortedKeys(val) {
			if found := scanForEmail(val[k], depth+1, visited); found != "" {
				return found
			}
		}
	case []interface{}:
		ptr := reflect.ValueOf(val).Pointer()
		if visited[ptr] {
			return ""
		}
		visited[ptr] = true
		for _, item := range val {
			if found := scanForEmail(item, depth+1, visited); found != "" {
				return found
			}
		}
	}
	return ""
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// InvalidCCTokens splits a semicolon-separated CC list, trims each token,
// discards empties, and returns the tokens that fail the email-shape check,
// verbatim and in order. An empty list is valid.
func InvalidCCTokens(list string) []string {
	var invalid []string
	for _, token := range strings.Split(list, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !IsEmail(token) {
			invalid = append(invalid, token)
		}
	}
	return invalid
}

// ValidateCCList returns an error naming every invalid token in the CC list
// so the user can correct them without retyping the valid ones.
func ValidateCCList(list string) error {
	if invalid := InvalidCCTokens(list); len(invalid) > 0 {
		return ccError(invalid)
	}
	return nil
}

func ccError(invalid []string) error {
	return fmt.Errorf("invalid cc email address(es): %s", strings.Join(invalid, ", "))
}
