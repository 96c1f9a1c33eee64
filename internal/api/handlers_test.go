package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VeriScreen/OrderFlow/internal/backend"
	"github.com/VeriScreen/OrderFlow/internal/models"
	"github.com/VeriScreen/OrderFlow/internal/testutil"
)

func doRequest(t *testing.T, handler http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.CreateHTTPRequest(t, method, url, body)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// createSession creates a fresh session through the API and returns its ID.
func createSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	rr := doRequest(t, handler, http.MethodPost, "/sessions", nil)
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create session")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected session result object, got %v", resp["result"])
	}
	id, ok := result["id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected session id, got %v", result["id"])
	}
	return id
}

func TestCreateAndGetSession(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()

	id := createSession(t, h)

	rr := doRequest(t, h, http.MethodGet, "/sessions/"+id, nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get session")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	if result["status"] != string(models.SessionActive) {
		t.Errorf("expected active session, got %v", result["status"])
	}
}

func TestGetUnknownSessionReturns404(t *testing.T) {
	f := testutil.NewTestServer()
	rr := doRequest(t, f.Server.Handler(), http.MethodGet, "/sessions/sess_missing", nil)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "get unknown session")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestSessionsMethodNotAllowed(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()

	rr := doRequest(t, h, http.MethodGet, "/sessions", nil)
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET /sessions")

	id := createSession(t, h)
	rr = doRequest(t, h, http.MethodGet, "/sessions/"+id+"/advance", nil)
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET advance")
}

func TestUnknownSessionEndpointReturns404(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)

	rr := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/frobnicate", nil)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown subresource")
}

func TestOrderInfoUpdateAndCascade(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)

	rr := doRequest(t, h, http.MethodPut, "/sessions/"+id+"/order-info",
		models.OrderInfoUpdate{CompanyID: "c1"})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "select company")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	draft := resp["result"].(map[string]interface{})["draft"].(map[string]interface{})
	if draft["company_id"] != "c1" {
		t.Errorf("expected company c1, got %v", draft["company_id"])
	}
	if draft["selected_company_email"] != "ops@acme.example" {
		t.Errorf("expected derived email, got %v", draft["selected_company_email"])
	}

	rr = doRequest(t, h, http.MethodPut, "/sessions/"+id+"/order-info",
		models.OrderInfoUpdate{PackageID: "p3"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "foreign package rejected")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestAdvanceBlockedReturns400(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)

	rr := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/advance", nil)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "advance on empty draft")
	testutil.AssertJSONResponse(t, rr, "error")
}

// fillSession drives a session through the API to the ready-for-sites state.
func fillSession(t *testing.T, h http.Handler, id string) {
	t.Helper()
	steps := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodPut, "/order-info", models.OrderInfoUpdate{CompanyID: "c1"}},
		{http.MethodPut, "/order-info", models.OrderInfoUpdate{PackageID: "p1"}},
		{http.MethodPut, "/order-info", models.OrderInfoUpdate{OrderReasonID: "r1"}},
		{http.MethodPut, "/participant", models.ParticipantUpdate{Participant: testutil.SampleParticipant()}},
		{http.MethodPut, "/communication", models.CommunicationUpdate{Mode: models.ModeDonorPass}},
	}
	for _, s := range steps {
		rr := doRequest(t, h, s.method, "/sessions/"+id+s.path, s.body)
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, s.path)
	}
}

func TestSiteRequestSelectionAndSubmit(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)
	fillSession(t, h, id)

	f.Backend.GetSiteInformationFn = func(ctx context.Context, req backend.SiteInformationRequest) (*backend.SiteInformationResult, error) {
		return &backend.SiteInformationResult{
			CaseNumber: "CASE-100",
			Sites:      []models.CollectionSite{{ID: "s1", Name: "Quest Albany", Zip: "10001"}},
		}, nil
	}
	rr := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/sites", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "request sites")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	outcome := resp["result"].(map[string]interface{})
	if outcome["case_number"] != "CASE-100" {
		t.Errorf("expected case number in outcome, got %v", outcome)
	}

	rr = doRequest(t, h, http.MethodPut, "/sessions/"+id+"/site",
		models.SiteSelection{SiteID: "s1", Final: true})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "select site")

	f.Backend.SubmitOrderFn = func(ctx context.Context, req backend.SubmitOrderRequest) (*backend.SubmitOrderResult, error) {
		return &backend.SubmitOrderResult{Message: "Order submitted successfully"}, nil
	}
	rr = doRequest(t, h, http.MethodPost, "/sessions/"+id+"/submit", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "submit order")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	if resp["message"] != "Order submitted successfully" {
		t.Errorf("expected backend message, got %v", resp["message"])
	}

	// Terminal session rejects further mutations.
	rr = doRequest(t, h, http.MethodPut, "/sessions/"+id+"/order-info",
		models.OrderInfoUpdate{CompanyID: "c2"})
	testutil.AssertHTTPStatus(t, http.StatusConflict, rr.Code, "mutation after submit")

	// The receipt shows up in the orders listing.
	rr = doRequest(t, h, http.MethodGet, "/orders", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "list orders")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	orders, ok := resp["result"].([]interface{})
	if !ok || len(orders) != 1 {
		t.Fatalf("expected 1 order receipt, got %v", resp["result"])
	}
}

func TestSiteRequestLinkMode(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)
	fillSession(t, h, id)

	rr := doRequest(t, h, http.MethodPut, "/sessions/"+id+"/communication",
		models.CommunicationUpdate{Mode: models.ModeSchedulingLink, LinkEmail: "donor@example.com"})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "switch to link mode")

	f.Backend.GetSiteInformationFn = func(ctx context.Context, req backend.SiteInformationRequest) (*backend.SiteInformationResult, error) {
		return &backend.SiteInformationResult{Link: "https://sched.example/abc"}, nil
	}
	rr = doRequest(t, h, http.MethodPost, "/sessions/"+id+"/sites", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "link mode site request")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if resp["message"] != "Scheduling link sent successfully" {
		t.Errorf("expected link success message, got %v", resp["message"])
	}
	if f.Notifier.SentCount() != 1 {
		t.Errorf("expected 1 SMS dispatch, got %d", f.Notifier.SentCount())
	}
}

func TestBackendFailureReturns502(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)
	fillSession(t, h, id)

	f.Backend.GetSiteInformationFn = func(ctx context.Context, req backend.SiteInformationRequest) (*backend.SiteInformationResult, error) {
		return nil, &backend.BackendError{StatusCode: 503, Message: "lab backend offline"}
	}
	rr := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/sites", nil)
	testutil.AssertHTTPStatus(t, http.StatusBadGateway, rr.Code, "backend failure")
	resp := testutil.AssertJSONResponse(t, rr, "error")
	if resp["message"] == "" {
		t.Error("expected upstream message to be surfaced")
	}
}

func TestPincodeEndpoint(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)
	fillSession(t, h, id)

	f.Backend.GetSiteInformationFn = func(ctx context.Context, req backend.SiteInformationRequest) (*backend.SiteInformationResult, error) {
		return &backend.SiteInformationResult{
			CaseNumber: "CASE-100",
			Sites:      []models.CollectionSite{{ID: "s1"}},
		}, nil
	}
	rr := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/sites", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "initial site request")

	f.Backend.HandleNewPincodeFn = func(ctx context.Context, caseNumber, zip string) ([]models.CollectionSite, error) {
		if caseNumber != "CASE-100" {
			t.Errorf("expected case reuse, got %q", caseNumber)
		}
		return []models.CollectionSite{{ID: "s9", Zip: zip}}, nil
	}
	rr = doRequest(t, h, http.MethodPost, "/sessions/"+id+"/sites/pincode",
		models.PincodeRequest{Zip: "14201"})
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "pincode resubmit")

	rr = doRequest(t, h, http.MethodPost, "/sessions/"+id+"/sites/pincode",
		models.PincodeRequest{Zip: "abc"})
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid zip")
}

func TestResetEndpoint(t *testing.T) {
	f := testutil.NewTestServer()
	h := f.Server.Handler()
	id := createSession(t, h)
	fillSession(t, h, id)

	rr := doRequest(t, h, http.MethodPost, "/sessions/"+id+"/reset", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "reset")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	draft := resp["result"].(map[string]interface{})["draft"].(map[string]interface{})
	if draft["company_id"] != "" {
		t.Errorf("expected cleared draft, got company %v", draft["company_id"])
	}
}

func TestCompaniesEndpoint(t *testing.T) {
	f := testutil.NewTestServer()
	rr := doRequest(t, f.Server.Handler(), http.MethodGet, "/companies", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "list companies")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	companies, ok := resp["result"].([]interface{})
	if !ok || len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %v", resp["result"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := testutil.NewTestServer()
	rr := doRequest(t, f.Server.Handler(), http.MethodGet, "/health", nil)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	resp := testutil.AssertJSONResponse(t, rr, "healthy")
	if resp["timestamp"] == nil {
		t.Error("expected health timestamp")
	}
}
