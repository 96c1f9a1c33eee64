// Package store provides storage backends for OrderFlow.
//
// Wizard sessions and submitted-order receipts can live in memory (tests,
// demos), SQLite (single-node deployments) or PostgreSQL.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/VeriScreen/OrderFlow/internal/models"
)

// Store defines the persistence operations used by the wizard orchestrator.
type Store interface {
	// SaveSession inserts or replaces a wizard session.
	SaveSession(s models.WizardSession) error
	// GetSession returns a session by ID, or nil if none exists.
	GetSession(id string) (*models.WizardSession, error)
	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(id string) error
	// ListSessions returns all sessions ordered by creation time.
	ListSessions() ([]models.WizardSession, error)
	// AddOrderReceipt records a submitted order.
	AddOrderReceipt(r models.OrderReceipt) error
	// GetOrderReceipts returns all recorded orders ordered by submission time.
	GetOrderReceipts() ([]models.OrderReceipt, error)
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite or a
	// postgres:// URL / key=value DSN for PostgreSQL.
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures an SQLite database file path.
func WithSQLiteDSN(path string) Option {
	return func(o *Opts) { o.DSN = path }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports which driver a DSN belongs to: "postgres" for
// postgres:// URLs and key=value DSNs, otherwise "sqlite3" (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore keeps sessions and receipts in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.WizardSession
	receipts []models.OrderReceipt
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	slog.Debug("Creating InMemoryStore")
	return &InMemoryStore{sessions: make(map[string]models.WizardSession)}
}

// SaveSession inserts or replaces a session.
func (s *InMemoryStore) SaveSession(sess models.WizardSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// GetSession returns a session by ID, or nil if none exists.
func (s *InMemoryStore) GetSession(id string) (*models.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// DeleteSession removes a session.
func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *InMemoryStore) ListSessions() ([]models.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]models.WizardSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// AddOrderReceipt records a submitted order.
func (s *InMemoryStore) AddOrderReceipt(r models.OrderReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

// GetOrderReceipts returns all recorded orders.
func (s *InMemoryStore) GetOrderReceipts() ([]models.OrderReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipts := make([]models.OrderReceipt, len(s.receipts))
	copy(receipts, s.receipts)
	return receipts, nil
}
