// Package models defines API request payloads for OrderFlow endpoints.
package models

import "errors"

// ResultRow is a flat historical order/result record as the portal's results
// list delivers it. It is the input to the reschedule prefill mapper.
type ResultRow struct {
	CompanyName     string `json:"companyName"`
	CompanyEmail    string `json:"companyEmail,omitempty"`
	PackageName     string `json:"packageName"`
	OrderReasonName string `json:"orderReasonName"`
	FirstName       string `json:"firstName"`
	MiddleName      string `json:"middleName,omitempty"`
	LastName        string `json:"lastName"`
	SSN             string `json:"ssn,omitempty"`
	SSNState        string `json:"ssnState,omitempty"`
	DOB             string `json:"dob,omitempty"`
	Phone1          string `json:"phone1,omitempty"`
	Phone2          string `json:"phone2,omitempty"`
	Email           string `json:"email,omitempty"`
	Observed        string `json:"observed,omitempty"`
	Address         string `json:"address,omitempty"`
	Address2        string `json:"address2,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	Zip             string `json:"zip,omitempty"`
	SendLink        bool   `json:"sendLink,omitempty"`
	DonorPass       bool   `json:"donorPass,omitempty"`
	CCEmail         string `json:"ccEmail,omitempty"`
}

// CreateSessionRequest starts a new wizard session, optionally seeded from a
// historical result row (reschedule).
type CreateSessionRequest struct {
	Reschedule *ResultRow `json:"reschedule,omitempty"`
}

// OrderInfoUpdate carries the order-information step selections. Empty
// fields are ignored; setting an upstream field cascades per the wizard
// invariants.
type OrderInfoUpdate struct {
	CompanyID     string `json:"company_id,omitempty"`
	PackageID     string `json:"package_id,omitempty"`
	OrderReasonID string `json:"order_reason_id,omitempty"`
	DOTAgency     string `json:"dot_agency,omitempty"`
}

// ParticipantUpdate replaces the participant fields of a draft.
type ParticipantUpdate struct {
	Participant Participant `json:"participant"`
}

// Validate performs shape validation on the participant payload.
func (r *ParticipantUpdate) Validate() error {
	p := &r.Participant
	for _, f := range []string{p.FirstName, p.MiddleName, p.LastName, p.Address, p.Address2, p.City} {
		if len(f) > MaxParticipantFieldLength {
			return errors.New("participant field exceeds maximum length")
		}
	}
	if p.Observed != "" && p.Observed != "0" && p.Observed != "1" {
		return errors.New(`observed must be "0" or "1"`)
	}
	return nil
}

// CommunicationUpdate sets the communication mode and its email fields.
// CCEmail distinguishes "not provided" from "cleared": nil leaves the stored
// CC list alone (and lets the one-shot seed run), an explicit empty string
// clears it.
type CommunicationUpdate struct {
	Mode      CommunicationMode `json:"mode"`
	LinkEmail string            `json:"link_email,omitempty"`
	CCEmail   *string           `json:"cc_email,omitempty"`
}

// Validate checks the mode and the CC list length. Token-level CC
// validation lives in the wizard package.
func (r *CommunicationUpdate) Validate() error {
	if !IsValidCommunicationMode(r.Mode) {
		return ErrInvalidMode
	}
	if r.CCEmail != nil && len(*r.CCEmail) > MaxCCListLength {
		return errors.New("cc list exceeds maximum length")
	}
	return nil
}

// SiteSelection picks a collection site from the candidate list.
type SiteSelection struct {
	SiteID string `json:"site_id"`
	// Final marks the selection as the committed choice used at submission.
	// A non-final selection only previews the site.
	Final bool `json:"final"`
}

// Validate checks the site selection payload.
func (r *SiteSelection) Validate() error {
	if r.SiteID == "" {
		return ErrNoSiteSelected
	}
	return nil
}

// PincodeRequest carries a corrected ZIP for site re-query.
type PincodeRequest struct {
	Zip string `json:"zip"`
}
