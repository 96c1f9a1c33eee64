package wizard

import (
	"log/slog"
	"strings"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// dateLayouts are the formats historical result rows are known to carry.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"2006-01-02 15:04:05",
}

// normalizeDate parses a result-row date into RFC 3339, or returns "" when
// the value is absent or unparseable.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// MapReschedule flattens a historical order/result row into the prefill
// shape a fresh wizard session expects. It is a pure transformation: company,
// package and order-reason names stay free text here, and are resolved to
// IDs by ApplyPrefill once the matching company's option lists have loaded.
func MapReschedule(row models.ResultRow) models.ReschedulePrefill {
	observed := row.Observed
	if observed == "" {
		observed = "0"
	}
	mode := models.ModeNone
	switch {
	case row.SendLink:
		mode = models.ModeSchedulingLink
	case row.DonorPass:
		mode = models.ModeDonorPass
	}
	return models.ReschedulePrefill{
		CompanyName:     strings.TrimSpace(row.CompanyName),
		CompanyEmail:    strings.TrimSpace(row.CompanyEmail),
		PackageName:     strings.TrimSpace(row.PackageName),
		OrderReasonName: strings.TrimSpace(row.OrderReasonName),
		Participant: models.Participant{
			FirstName:  row.FirstName,
			MiddleName: row.MiddleName,
			LastName:   row.LastName,
			SSN:        row.SSN,
			SSNState:   row.SSNState,
			DOB:        normalizeDate(row.DOB),
			Phone1:     row.Phone1,
			Phone2:     row.Phone2,
			Email:      row.Email,
			Observed:   observed,
			Address:    row.Address,
			Address2:   row.Address2,
			City:       row.City,
			State:      row.State,
			Zip:        row.Zip,
		},
		Mode:      mode,
		LinkEmail: strings.TrimSpace(row.Email),
		CCEmail:   strings.TrimSpace(row.CCEmail),
	}
}

// matchOptionID resolves a free-text option name against loaded options:
// case-insensitive exact match first, then substring in either direction.
// The first hit wins; "" means manual selection is required.
func matchOptionID(name string, options func(yield func(id, optName string) bool)) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	lower := strings.ToLower(name)
	var matchID, matchName string
	options(func(id, optName string) bool {
		if strings.EqualFold(optName, name) {
			matchID, matchName = id, optName
			return false
		}
		return true
	})
	if matchID != "" {
		return matchID, matchName
	}
	options(func(id, optName string) bool {
		optLower := strings.ToLower(optName)
		if strings.Contains(optLower, lower) || strings.Contains(lower, optLower) {
			matchID, matchName = id, optName
			return false
		}
		return true
	})
	return matchID, matchName
}

// ApplyPrefill resolves the session's pending prefill names against the
// freshly loaded company's option lists. It runs at most once per
// company-load cycle: only a session in SeedSeeding transitions to
// SeedSeeded, so re-running the load cannot clobber user edits. Unmatched
// names leave the field empty for manual selection.
func ApplyPrefill(s *models.WizardSession, company models.Company) {
	if s.Prefill == nil || s.Seed != models.SeedSeeding {
		return
	}
	d := &s.Draft
	if d.PackageID == "" {
		id, name := matchOptionID(s.Prefill.PackageName, func(yield func(string, string) bool) {
			for _, p := range company.Packages {
				if !yield(p.ID, p.Name) {
					return
				}
			}
		})
		if id != "" {
			d.PackageID = id
			d.PackageName = name
		}
	}
	if d.OrderReasonID == "" {
		id, _ := matchOptionID(s.Prefill.OrderReasonName, func(yield func(string, string) bool) {
			for _, r := range company.OrderReasons {
				if !yield(r.ID, r.Name) {
					return
				}
			}
		})
		if id != "" {
			d.OrderReasonID = id
		}
	}
	s.Seed = models.SeedSeeded
	d.Revision++
	slog.Debug("wizard.ApplyPrefill applied", "session", s.ID,
		"package_id", d.PackageID, "order_reason_id", d.OrderReasonID)
}
