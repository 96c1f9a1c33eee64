package backend

import (
	"context"
	"fmt"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// MockClient is a test double for the lab backend. Function fields override
// individual operations; unset operations fail loudly.
type MockClient struct {
	ListCompaniesFn      func(ctx context.Context) ([]models.Company, error)
	GetSiteInformationFn func(ctx context.Context, req SiteInformationRequest) (*SiteInformationResult, error)
	HandleNewPincodeFn   func(ctx context.Context, caseNumber, zip string) ([]models.CollectionSite, error)
	SubmitOrderFn        func(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error)
}

// ListCompanies implements Client.
func (m *MockClient) ListCompanies(ctx context.Context) ([]models.Company, error) {
	if m.ListCompaniesFn == nil {
		return nil, fmt.Errorf("MockClient.ListCompanies not configured")
	}
	return m.ListCompaniesFn(ctx)
}

// GetSiteInformation implements Client.
func (m *MockClient) GetSiteInformation(ctx context.Context, req SiteInformationRequest) (*SiteInformationResult, error) {
	if m.GetSiteInformationFn == nil {
		return nil, fmt.Errorf("MockClient.GetSiteInformation not configured")
	}
	return m.GetSiteInformationFn(ctx, req)
}

// HandleNewPincode implements Client.
func (m *MockClient) HandleNewPincode(ctx context.Context, caseNumber, zip string) ([]models.CollectionSite, error) {
	if m.HandleNewPincodeFn == nil {
		return nil, fmt.Errorf("MockClient.HandleNewPincode not configured")
	}
	return m.HandleNewPincodeFn(ctx, caseNumber, zip)
}

// SubmitOrder implements Client.
func (m *MockClient) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	if m.SubmitOrderFn == nil {
		return nil, fmt.Errorf("MockClient.SubmitOrder not configured")
	}
	return m.SubmitOrderFn(ctx, req)
}
