// Package backend wraps the lab backend REST API used by the order wizard.
//
// All business logic lives on the backend side; this package only gives the
// wizard a typed surface over the four endpoints it calls: the company list,
// site lookup, pincode correction and final submission.
package backend

import (
	"context"
	"fmt"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// Client defines the lab backend operations the wizard depends on.
type Client interface {
	// ListCompanies fetches company records with nested packages and order
	// reasons used to populate the cascading selects.
	ListCompanies(ctx context.Context) ([]models.Company, error)

	// GetSiteInformation posts the assembled order data. In scheduling-link
	// mode the backend dispatches the link and returns no site payload;
	// otherwise it returns candidate sites and a case number.
	GetSiteInformation(ctx context.Context, req SiteInformationRequest) (*SiteInformationResult, error)

	// HandleNewPincode re-queries candidate sites for an existing case using
	// a corrected ZIP.
	HandleNewPincode(ctx context.Context, caseNumber, zip string) ([]models.CollectionSite, error)

	// SubmitOrder posts the final order for the given case.
	SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error)
}

// FormData carries the participant fields and notification flags the way
// the backend expects them: participant fields inline plus the legacy
// sendLink/donorPass boolean pair.
type FormData struct {
	Participant models.Participant `json:"participant"`
	SendLink    bool               `json:"sendLink"`
	DonorPass   bool               `json:"donorPass"`
	Email       string             `json:"email,omitempty"`
	CCEmail     string             `json:"ccEmail,omitempty"`
}

// SiteInformationRequest is the POST /admin/getSiteInformation body.
type SiteInformationRequest struct {
	CompanyID     string   `json:"companyId"`
	PackageID     string   `json:"packageId"`
	OrderReasonID string   `json:"orderReasonId"`
	DOTAgency     string   `json:"dotAgency,omitempty"`
	FormData      FormData `json:"formData"`
}

// SiteInformationResult is the decoded site-lookup response. Link mode
// yields only a message (and optionally the link itself for SMS dispatch);
// site mode yields candidate sites and the case number for the order.
type SiteInformationResult struct {
	Message    string                  `json:"message,omitempty"`
	Sites      []models.CollectionSite `json:"data,omitempty"`
	CaseNumber string                  `json:"caseNumber,omitempty"`
	Link       string                  `json:"link,omitempty"`
}

// SubmitOrderRequest is the POST /admin/newDriverSubmitOrder body. The
// finlSelectedSite key reproduces the backend's field name as-is.
type SubmitOrderRequest struct {
	CompanyID         string                 `json:"companyId"`
	PackageID         string                 `json:"packageId"`
	OrderReasonID     string                 `json:"orderReasonId"`
	CaseNumber        string                 `json:"caseNumber"`
	RequestID         string                 `json:"requestId"`
	FormData          FormData               `json:"formData"`
	FinalSelectedSite *models.CollectionSite `json:"finlSelectedSite"`
}

// SubmitOrderResult is the decoded submission response.
type SubmitOrderResult struct {
	Message string `json:"message"`
}

// BackendError carries the upstream HTTP status and message so handlers can
// surface the backend's own wording to the user.
type BackendError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}
