// Package models defines the wizard session state structures for OrderFlow.
package models

import "time"

// Step identifies a wizard step. Steps are ordered; the confirmation screen
// after a successful submission is the submit response, not a step.
type Step int

// Wizard step constants.
const (
	// StepOrderInfo collects company, package, order reason and DOT agency.
	StepOrderInfo Step = 1
	// StepParticipant collects participant details and the communication mode.
	StepParticipant Step = 2
	// StepSite presents backend-provided collection sites for selection.
	StepSite Step = 3
	// StepReview is the final review; submission is its exit.
	StepReview Step = 4

	// TotalSteps is the number of wizard steps.
	TotalSteps = 4
)

// CommunicationMode selects how the participant is notified. Exactly one
// mode is active at a time; the two-boolean representation of the portal
// frontend only exists at the backend JSON edge.
type CommunicationMode string

const (
	// ModeNone means no communication mode has been chosen yet.
	ModeNone CommunicationMode = "none"
	// ModeSchedulingLink sends the participant a self-scheduling link.
	ModeSchedulingLink CommunicationMode = "scheduling_link"
	// ModeDonorPass emails a donor pass to the company with an optional CC list.
	ModeDonorPass CommunicationMode = "donor_pass"
)

// IsValidCommunicationMode checks if the given communication mode is supported.
func IsValidCommunicationMode(m CommunicationMode) bool {
	switch m {
	case ModeNone, ModeSchedulingLink, ModeDonorPass:
		return true
	default:
		return false
	}
}

// SeedState tracks the one-shot reschedule/CC prefill lifecycle so the
// automatic seed can never clobber user edits.
type SeedState string

const (
	// SeedUnseeded means prefill has not been applied for the current company.
	SeedUnseeded SeedState = "unseeded"
	// SeedSeeding means company options are loaded and prefill may apply once.
	SeedSeeding SeedState = "seeding"
	// SeedSeeded means prefill has been applied and must not reapply.
	SeedSeeded SeedState = "seeded"
)

// SessionStatus represents the lifecycle status of a wizard session.
type SessionStatus string

const (
	// SessionActive indicates the session accepts mutations.
	SessionActive SessionStatus = "active"
	// SessionSubmitted indicates the order was submitted; terminal.
	SessionSubmitted SessionStatus = "submitted"
	// SessionAbandoned indicates the session was explicitly discarded.
	SessionAbandoned SessionStatus = "abandoned"
)

// IsTerminal returns true if no further mutations are allowed in this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionSubmitted
}

// Participant holds the donor details collected on the participant step.
// Observed uses the backend's "0"/"1" string convention.
type Participant struct {
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName,omitempty"`
	LastName     string `json:"lastName"`
	SSN          string `json:"ssn,omitempty"`
	SSNState     string `json:"ssnState,omitempty"`
	DOB          string `json:"dob"`
	Phone1       string `json:"phone1"`
	Phone2       string `json:"phone2,omitempty"`
	Email        string `json:"email,omitempty"`
	OrderExpires string `json:"orderExpires,omitempty"`
	Observed     string `json:"observed"`
	Address      string `json:"address"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

// OrderDraft is the single source of truth for an order-in-progress. It is
// mutated exclusively through the wizard orchestrator and destroyed by hard
// reset on terminal success paths.
type OrderDraft struct {
	CurrentStep    Step `json:"current_step"`
	MaxReachedStep Step `json:"max_reached_step"`

	CompanyID            string `json:"company_id"`
	SelectedCompanyEmail string `json:"selected_company_email"`
	PackageID            string `json:"package_id"`
	PackageName          string `json:"package_name"`
	OrderReasonID        string `json:"order_reason_id"`
	DOTAgency            string `json:"dot_agency"`

	Participant Participant `json:"participant"`

	Mode      CommunicationMode `json:"communication_mode"`
	LinkEmail string            `json:"link_email"`
	CCEmail   string            `json:"cc_email"`
	// CCSeeded reports whether the CC field currently holds the auto-seeded
	// company email rather than a user-entered value.
	CCSeeded bool `json:"cc_seeded"`

	CaseNumber          string           `json:"case_number"`
	CandidateSites      []CollectionSite `json:"candidate_sites,omitempty"`
	SelectedSiteID      string           `json:"selected_site_id"`
	SelectedSiteDetails *CollectionSite  `json:"selected_site_details,omitempty"`
	FinalSelectedSite   *CollectionSite  `json:"final_selected_site,omitempty"`

	// RequestID is the client-generated idempotency key sent with the final
	// submission. Regenerated by hard reset.
	RequestID string `json:"request_id"`
	// Revision increments on every mutation; backend responses are applied
	// only if the revision they were requested against is still current.
	Revision int64 `json:"revision"`
}

// NewOrderDraft returns a draft holding the documented initial defaults.
// requestID is caller-supplied so hard reset can rotate it.
func NewOrderDraft(requestID string) OrderDraft {
	return OrderDraft{
		CurrentStep:    StepOrderInfo,
		MaxReachedStep: StepOrderInfo,
		Mode:           ModeNone,
		Participant:    Participant{Observed: "0"},
		RequestID:      requestID,
	}
}

// WizardSession is a persisted wizard instance: one in-progress order owned
// by a single portal user.
type WizardSession struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	Seed      SeedState     `json:"seed_state"`
	Draft     OrderDraft    `json:"draft"`
	Prefill   *ReschedulePrefill `json:"prefill,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ReschedulePrefill is the one-shot mapping built from a historical result
// row used to seed a fresh wizard session. Package and order-reason names
// stay free text here; resolution to IDs happens after the company's option
// lists load.
type ReschedulePrefill struct {
	CompanyName     string      `json:"company_name"`
	CompanyEmail    string      `json:"company_email,omitempty"`
	PackageName     string      `json:"package_name"`
	OrderReasonName string      `json:"order_reason_name"`
	Participant     Participant `json:"participant"`
	Mode            CommunicationMode `json:"communication_mode"`
	LinkEmail       string      `json:"link_email,omitempty"`
	CCEmail         string      `json:"cc_email,omitempty"`
}
