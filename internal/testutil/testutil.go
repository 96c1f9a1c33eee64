// Package testutil provides common test utilities and helpers for OrderFlow tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VeriScreen/OrderFlow/internal/api"
	"github.com/VeriScreen/OrderFlow/internal/backend"
	"github.com/VeriScreen/OrderFlow/internal/cache"
	"github.com/VeriScreen/OrderFlow/internal/models"
	"github.com/VeriScreen/OrderFlow/internal/notify"
	"github.com/VeriScreen/OrderFlow/internal/store"
	"github.com/VeriScreen/OrderFlow/internal/wizard"
)

// Fixture bundles a test API server with its injected dependencies so tests
// can steer the mocks and inspect stored state directly.
type Fixture struct {
	Server   *api.Server
	Store    *store.InMemoryStore
	Backend  *backend.MockClient
	Notifier *notify.MockService
	Orch     *wizard.Orchestrator
}

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() *Fixture {
	st := store.NewInMemoryStore()
	mock := &backend.MockClient{
		ListCompaniesFn: func(ctx context.Context) ([]models.Company, error) {
			return SampleCompanies(), nil
		},
	}
	notifier := &notify.MockService{}
	companies := cache.NewCompanyCache()
	orch := wizard.NewOrchestrator(st, mock, companies, wizard.WithNotifier(notifier))
	return &Fixture{
		Server:   api.NewServer(st, orch),
		Store:    st,
		Backend:  mock,
		Notifier: notifier,
		Orch:     orch,
	}
}

// SampleCompanies returns a small company catalog with packages and order
// reasons, including a DOT package, for wizard and handler tests.
func SampleCompanies() []models.Company {
	return []models.Company{
		{
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
		},
		{
			ID:   "c2",
			Name: "Borealis Freight",
			Packages: []models.TestPackage{
				{ID: "p3", Name: "10 Panel Urine"},
			},
			OrderReasons: []models.OrderReason{
				{ID: "r3", Name: "Post-Accident"},
			},
		},
	}
}

// SampleParticipant returns a participant that passes step validation.
func SampleParticipant() models.Participant {
	return models.Participant{
		FirstName: "Jordan",
		LastName:  "Reyes",
		DOB:       "1990-04-12",
		Phone1:    "4165551234",
		Address:   "12 Main St",
		City:      "Albany",
		State:     "NY",
		Zip:       "10001",
		Observed:  "0",
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
