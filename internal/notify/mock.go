package notify

import (
	"context"
	"sync"
)

// SentLink records one dispatched scheduling link.
type SentLink struct {
	To   string
	Link string
}

// MockService is a test double recording dispatched links.
type MockService struct {
	mu   sync.Mutex
	Sent []SentLink
	Err  error
}

// ValidateAndCanonicalizeRecipient implements Service.
func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// SendSchedulingLink implements Service, recording the call.
func (m *MockService) SendSchedulingLink(ctx context.Context, to, link string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentLink{To: to, Link: link})
	return nil
}

// SentCount returns how many links were dispatched.
func (m *MockService) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
