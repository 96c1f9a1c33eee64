package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// Endpoint paths on the lab backend.
const (
	pathCompanyList     = "/admin/getCompanyList"
	pathSiteInformation = "/admin/getSiteInformation"
	pathNewPincode      = "/admin/handleNewPincode"
	pathSubmitOrder     = "/admin/newDriverSubmitOrder"

	// DefaultRequestTimeout bounds each backend call. There are no retries;
	// failures are reported to the user for manual retry.
	DefaultRequestTimeout = 30 * time.Second
)

// Opts holds configuration options for the HTTP backend client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the HTTP backend client.
type Option func(*Opts)

// WithBaseURL sets the backend base URL.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithHTTPClient injects the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// HTTPClient implements Client against a real lab backend.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient creates a backend client. Base URL and API key fall back to
// the BACKEND_BASE_URL and BACKEND_API_KEY environment variables.
func NewHTTPClient(opts ...Option) (*HTTPClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("BACKEND_BASE_URL")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("BACKEND_API_KEY")
	}
	slog.Debug("Backend client config loaded", "base_url_set", cfg.BaseURL != "", "api_key_set", cfg.APIKey != "")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL must be provided")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

// do issues one JSON request and decodes the response into out. Error
// responses are decoded into a BackendError carrying the upstream message.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	slog.Debug("HTTPClient.do: calling backend", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("HTTPClient.do: request failed", "path", path, "error", err)
		return fmt.Errorf("backend request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		slog.Warn("HTTPClient.do: backend error response", "path", path, "status", resp.StatusCode, "message", payload.Message)
		return &BackendError{StatusCode: resp.StatusCode, Message: payload.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("HTTPClient.do: failed to decode response", "path", path, "error", err)
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// ListCompanies fetches the upstream company list.
func (c *HTTPClient) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var payload struct {
		Data []models.Company `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, pathCompanyList, nil, &payload); err != nil {
		return nil, err
	}
	slog.Debug("HTTPClient.ListCompanies succeeded", "count", len(payload.Data))
	return payload.Data, nil
}

// GetSiteInformation posts the order data and decodes either outcome.
func (c *HTTPClient) GetSiteInformation(ctx context.Context, req SiteInformationRequest) (*SiteInformationResult, error) {
	var res SiteInformationResult
	if err := c.do(ctx, http.MethodPost, pathSiteInformation, req, &res); err != nil {
		return nil, err
	}
	slog.Debug("HTTPClient.GetSiteInformation succeeded", "case_number", res.CaseNumber, "site_count", len(res.Sites))
	return &res, nil
}

// HandleNewPincode re-queries sites for the existing case with a new ZIP.
func (c *HTTPClient) HandleNewPincode(ctx context.Context, caseNumber, zip string) ([]models.CollectionSite, error) {
	body := map[string]string{"caseNumber": caseNumber, "data": zip}
	var payload struct {
		Data []models.CollectionSite `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, pathNewPincode, body, &payload); err != nil {
		return nil, err
	}
	slog.Debug("HTTPClient.HandleNewPincode succeeded", "case_number", caseNumber, "site_count", len(payload.Data))
	return payload.Data, nil
}

// SubmitOrder posts the final order.
func (c *HTTPClient) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	var res SubmitOrderResult
	if err := c.do(ctx, http.MethodPost, pathSubmitOrder, req, &res); err != nil {
		return nil, err
	}
	slog.Debug("HTTPClient.SubmitOrder succeeded", "case_number", req.CaseNumber)
	return &res, nil
}
