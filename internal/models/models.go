// Package models defines the core data structures for OrderFlow.
//
// It includes company, package and collection-site records fetched from the
// lab backend, order receipts, and the API response envelope shared across
// modules.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxCCListLength defines the maximum allowed length for a semicolon-separated CC list
	MaxCCListLength = 1024
	// MaxParticipantFieldLength defines the maximum allowed length for free-text participant fields
	MaxParticipantFieldLength = 256
)

// Error variables for better error handling and testability
var (
	ErrEmptyCompany        = errors.New("company must be selected")
	ErrEmptyPackage        = errors.New("package must be selected")
	ErrEmptyOrderReason    = errors.New("order reason must be selected")
	ErrMissingDOTAgency    = errors.New("DOT agency is required for DOT packages")
	ErrDOTAgencyNotAllowed = errors.New("DOT agency only applies to DOT packages")
	ErrInvalidMode         = errors.New("invalid communication mode")
	ErrInvalidZip          = errors.New("zip code must be 5 digits")
	ErrMissingCaseNumber   = errors.New("case number not assigned yet")
	ErrNoSiteSelected      = errors.New("collection site must be selected")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionTerminal     = errors.New("session already submitted")
	ErrSubmitInFlight      = errors.New("submission already in progress")
)

// DOTPackageNames is the fixed set of package names that require a DOT
// agency selection. Matching is case-insensitive.
var DOTPackageNames = []string{
	"DOT PANEL",
	"DOT PANEL + ALCOHOL",
	"DOT BAT",
	"DOT PHYSICAL",
}

// IsDOTPackageName reports whether the given package name requires a DOT
// agency selection.
func IsDOTPackageName(name string) bool {
	for _, dot := range DOTPackageNames {
		if strings.EqualFold(strings.TrimSpace(name), dot) {
			return true
		}
	}
	return false
}

// TestPackage represents a test package offered by a company.
type TestPackage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderReason represents a reason an order may be placed (pre-employment,
// random, post-accident, ...).
type OrderReason struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Company represents a company record from the lab backend, with its
// available packages and order reasons used to populate the wizard cascade.
//
// Backend company schemas are not uniform; Raw preserves the full object so
// the email derivation fallback can scan fields the typed struct does not
// know about.
type Company struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ContactEmail string        `json:"contactEmail,omitempty"`
	CompanyEmail string        `json:"companyEmail,omitempty"`
	PrimaryEmail string        `json:"primaryEmail,omitempty"`
	Email        string        `json:"email,omitempty"`
	Packages     []TestPackage `json:"packages,omitempty"`
	OrderReasons []OrderReason `json:"orderReasons,omitempty"`

	Raw map[string]interface{} `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the raw object for the
// duck-typed email fallback scan.
func (c *Company) UnmarshalJSON(data []byte) error {
	type alias Company
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Company(a)
	c.Raw = raw
	return nil
}

// CollectionSite represents a candidate collection site returned by the lab
// backend for an order-in-progress.
type CollectionSite struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone,omitempty"`
	Distance string `json:"distance,omitempty"`
}

// OrderReceipt records a successfully submitted order.
type OrderReceipt struct {
	CaseNumber      string    `json:"case_number"`
	CompanyID       string    `json:"company_id"`
	PackageID       string    `json:"package_id"`
	ParticipantName string    `json:"participant_name"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{response: APIResponse{}}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
