package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	return c
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")
	if _, err := NewHTTPClient(); err == nil {
		t.Error("expected error when base URL is not set")
	}
}

func TestNewHTTPClientEnvFallback(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://lab.example/api/")
	c, err := NewHTTPClient()
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	if c.baseURL != "https://lab.example/api" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
}

func TestListCompanies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/getCompanyList" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"c1","name":"Acme Logistics","contactEmail":"ops@acme.example",
			 "packages":[{"id":"p1","name":"5 Panel Urine"}],
			 "orderReasons":[{"id":"r1","name":"Random"}],
			 "billing":{"inbox":"billing@acme.example"}}
		]}`))
	})

	companies, err := c.ListCompanies(context.Background())
	if err != nil {
		t.Fatalf("ListCompanies failed: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(companies))
	}
	company := companies[0]
	if company.ID != "c1" || company.ContactEmail != "ops@acme.example" {
		t.Errorf("company fields did not decode: %+v", company)
	}
	if len(company.Packages) != 1 || company.Packages[0].Name != "5 Panel Urine" {
		t.Errorf("packages did not decode: %+v", company.Packages)
	}
	// The raw record is preserved for the email fallback scan.
	if company.Raw == nil {
		t.Fatal("expected Raw to be populated")
	}
	if _, ok := company.Raw["billing"]; !ok {
		t.Error("expected unknown fields to survive in Raw")
	}
}

func TestGetSiteInformationWireShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/getSiteInformation" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["companyId"] != "c1" {
			t.Errorf("expected companyId key, got body %v", body)
		}
		form, ok := body["formData"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected formData object, got %v", body["formData"])
		}
		if form["donorPass"] != true || form["sendLink"] != false {
			t.Errorf("legacy boolean pair did not serialize: %v", form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"caseNumber":"CASE-100","data":[{"id":"s1","name":"Quest Albany","zip":"10001"}]}`))
	})

	res, err := c.GetSiteInformation(context.Background(), SiteInformationRequest{
		CompanyID:     "c1",
		PackageID:     "p1",
		OrderReasonID: "r1",
		FormData:      FormData{DonorPass: true},
	})
	if err != nil {
		t.Fatalf("GetSiteInformation failed: %v", err)
	}
	if res.CaseNumber != "CASE-100" {
		t.Errorf("expected case number, got %q", res.CaseNumber)
	}
	if len(res.Sites) != 1 || res.Sites[0].ID != "s1" {
		t.Errorf("sites did not decode: %+v", res.Sites)
	}
}

func TestHandleNewPincodeWireShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/handleNewPincode" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["caseNumber"] != "CASE-100" || body["data"] != "14201" {
			t.Errorf("unexpected pincode body: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"s9","name":"Quest Buffalo","zip":"14201"}]}`))
	})

	sites, err := c.HandleNewPincode(context.Background(), "CASE-100", "14201")
	if err != nil {
		t.Fatalf("HandleNewPincode failed: %v", err)
	}
	if len(sites) != 1 || sites[0].ID != "s9" {
		t.Errorf("sites did not decode: %+v", sites)
	}
}

func TestSubmitOrderWireShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/newDriverSubmitOrder" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		// The backend's misspelled key must go over the wire verbatim.
		if _, ok := body["finlSelectedSite"]; !ok {
			t.Errorf("expected finlSelectedSite key, got %v", body)
		}
		if body["requestId"] != "req-1" {
			t.Errorf("expected requestId, got %v", body["requestId"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Order submitted successfully"}`))
	})

	site := models.CollectionSite{ID: "s1", Name: "Quest Albany"}
	res, err := c.SubmitOrder(context.Background(), SubmitOrderRequest{
		CompanyID:         "c1",
		CaseNumber:        "CASE-100",
		RequestID:         "req-1",
		FinalSelectedSite: &site,
	})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if res.Message != "Order submitted successfully" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestBackendErrorCarriesUpstreamMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid pincode"}`))
	})

	_, err := c.GetSiteInformation(context.Background(), SiteInformationRequest{})
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %T: %v", err, err)
	}
	if be.StatusCode != http.StatusUnprocessableEntity || be.Message != "invalid pincode" {
		t.Errorf("unexpected BackendError: %+v", be)
	}
}

func TestMockClientFailsLoudlyWhenUnset(t *testing.T) {
	m := &MockClient{}
	if _, err := m.ListCompanies(context.Background()); err == nil {
		t.Error("expected unset ListCompanies to error")
	}
	if _, err := m.SubmitOrder(context.Background(), SubmitOrderRequest{}); err == nil {
		t.Error("expected unset SubmitOrder to error")
	}
}
