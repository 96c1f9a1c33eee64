package wizard

import (
	"testing"

	"github.com/VeriScreen/OrderFlow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResultRow() models.ResultRow {
	return models.ResultRow{
		CompanyName:     "Acme Logistics",
		CompanyEmail:    "ops@acme.example",
		PackageName:     "DOT PANEL",
		OrderReasonName: "Random",
		FirstName:       "Jordan",
		LastName:        "Reyes",
		DOB:             "04/12/1990",
		Phone1:          "4165551234",
		Email:           "jordan@example.com",
		Address:         "12 Main St",
		City:            "Albany",
		State:           "NY",
		Zip:             "10001",
		SendLink:        true,
	}
}

func TestMapReschedule(t *testing.T) {
	pf := MapReschedule(sampleResultRow())

	assert.Equal(t, "Acme Logistics", pf.CompanyName)
	assert.Equal(t, "DOT PANEL", pf.PackageName)
	assert.Equal(t, "Random", pf.OrderReasonName)
	assert.Equal(t, "Jordan", pf.Participant.FirstName)
	assert.Equal(t, "1990-04-12T00:00:00Z", pf.Participant.DOB)
	assert.Equal(t, models.ModeSchedulingLink, pf.Mode)
	assert.Equal(t, "jordan@example.com", pf.LinkEmail)
}

func TestMapRescheduleModePrecedence(t *testing.T) {
	row := sampleResultRow()
	row.SendLink = true
	row.DonorPass = true
	assert.Equal(t, models.ModeSchedulingLink, MapReschedule(row).Mode)

	row.SendLink = false
	assert.Equal(t, models.ModeDonorPass, MapReschedule(row).Mode)

	row.DonorPass = false
	assert.Equal(t, models.ModeNone, MapReschedule(row).Mode)
}

func TestMapRescheduleDefaultsObserved(t *testing.T) {
	row := sampleResultRow()
	row.Observed = ""
	assert.Equal(t, "0", MapReschedule(row).Participant.Observed)

	row.Observed = "1"
	assert.Equal(t, "1", MapReschedule(row).Participant.Observed)
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1990-04-12", "1990-04-12T00:00:00Z"},
		{"04/12/1990", "1990-04-12T00:00:00Z"},
		{"1990-04-12T08:30:00Z", "1990-04-12T08:30:00Z"},
		{"1990-04-12 08:30:00", "1990-04-12T08:30:00Z"},
		{"not a date", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeDate(tc.in), "input %q", tc.in)
	}
}

func prefillSession(pf models.ReschedulePrefill) *models.WizardSession {
	return &models.WizardSession{
		ID:      "sess_test",
		Status:  models.SessionActive,
		Seed:    models.SeedSeeding,
		Draft:   models.NewOrderDraft("req-1"),
		Prefill: &pf,
	}
}

func prefillCompany() models.Company {
	return models.Company{
		ID:           "c1",
		Name:         "Acme Logistics",
		ContactEmail: "ops@acme.example",
		Packages: []models.TestPackage{
			{ID: "p1", Name: "5 Panel Urine"},
			{ID: "p2", Name: "DOT PANEL"},
		},
		OrderReasons: []models.OrderReason{
			{ID: "r1", Name: "Pre-Employment"},
			{ID: "r2", Name: "Random"},
		},
	}
}

func TestApplyPrefillResolvesNames(t *testing.T) {
	s := prefillSession(MapReschedule(sampleResultRow()))
	ApplyPrefill(s, prefillCompany())

	assert.Equal(t, "p2", s.Draft.PackageID)
	assert.Equal(t, "DOT PANEL", s.Draft.PackageName)
	assert.Equal(t, "r2", s.Draft.OrderReasonID)
	assert.Equal(t, models.SeedSeeded, s.Seed)
}

func TestApplyPrefillMatchesCaseInsensitiveAndSubstring(t *testing.T) {
	pf := MapReschedule(sampleResultRow())
	pf.PackageName = "dot panel"
	pf.OrderReasonName = "Random Selection"
	s := prefillSession(pf)
	ApplyPrefill(s, prefillCompany())

	assert.Equal(t, "p2", s.Draft.PackageID)
	assert.Equal(t, "r2", s.Draft.OrderReasonID)
}

func TestApplyPrefillLeavesUnmatchedEmpty(t *testing.T) {
	pf := MapReschedule(sampleResultRow())
	pf.PackageName = "Hair Follicle Extended"
	s := prefillSession(pf)
	ApplyPrefill(s, prefillCompany())

	assert.Equal(t, "", s.Draft.PackageID)
	assert.Equal(t, "r2", s.Draft.OrderReasonID)
	assert.Equal(t, models.SeedSeeded, s.Seed, "seed completes even when names do not resolve")
}

func TestApplyPrefillRunsOnce(t *testing.T) {
	s := prefillSession(MapReschedule(sampleResultRow()))
	ApplyPrefill(s, prefillCompany())
	require.Equal(t, models.SeedSeeded, s.Seed)

	// A later reload with the user's edits in place must not clobber them.
	s.Draft.PackageID = "p1"
	s.Draft.PackageName = "5 Panel Urine"
	ApplyPrefill(s, prefillCompany())
	assert.Equal(t, "p1", s.Draft.PackageID)
}

func TestApplyPrefillNoopWithoutPrefill(t *testing.T) {
	s := prefillSession(models.ReschedulePrefill{})
	s.Prefill = nil
	before := s.Draft
	ApplyPrefill(s, prefillCompany())
	assert.Equal(t, before, s.Draft)
	assert.Equal(t, models.SeedSeeding, s.Seed)
}
