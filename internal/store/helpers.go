package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// sessionScanner is the row shape shared by the SQL backends.
type sessionScanner interface {
	Scan(dest ...interface{}) error
}

// scanSession decodes one wizard session row. The draft and prefill columns
// hold JSON.
func scanSession(row sessionScanner) (models.WizardSession, error) {
	var s models.WizardSession
	var draftJSON string
	var prefillJSON sql.NullString
	err := row.Scan(&s.ID, &s.Status, &s.Seed, &draftJSON, &prefillJSON, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(draftJSON), &s.Draft); err != nil {
		return s, fmt.Errorf("failed to decode draft for session %s: %w", s.ID, err)
	}
	if prefillJSON.Valid && prefillJSON.String != "" {
		var pf models.ReschedulePrefill
		if err := json.Unmarshal([]byte(prefillJSON.String), &pf); err != nil {
			return s, fmt.Errorf("failed to decode prefill for session %s: %w", s.ID, err)
		}
		s.Prefill = &pf
	}
	return s, nil
}

// encodeSession marshals the JSON columns of a session row.
func encodeSession(s models.WizardSession) (draftJSON string, prefillJSON interface{}, err error) {
	draft, err := json.Marshal(s.Draft)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode draft for session %s: %w", s.ID, err)
	}
	if s.Prefill == nil {
		return string(draft), nil, nil
	}
	prefill, err := json.Marshal(s.Prefill)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode prefill for session %s: %w", s.ID, err)
	}
	return string(draft), string(prefill), nil
}
