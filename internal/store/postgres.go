// Package store provides storage backends for OrderFlow.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/VeriScreen/OrderFlow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and receipts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveSession inserts or replaces a session row.
func (s *PostgresStore) SaveSession(sess models.WizardSession) error {
	draftJSON, prefillJSON, err := encodeSession(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO wizard_sessions (id, status, seed_state, draft, prefill, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			seed_state = EXCLUDED.seed_state,
			draft = EXCLUDED.draft,
			prefill = EXCLUDED.prefill,
			updated_at = EXCLUDED.updated_at`,
		sess.ID, sess.Status, sess.Seed, draftJSON, prefillJSON, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "session", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "session", sess.ID)
	return nil
}

// GetSession returns a session by ID, or nil if none exists.
func (s *PostgresStore) GetSession(id string) (*models.WizardSession, error) {
	row := s.db.QueryRow(`SELECT id, status, seed_state, draft, prefill, created_at, updated_at
		FROM wizard_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "session", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &sess, nil
}

// DeleteSession removes a session row.
func (s *PostgresStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM wizard_sessions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "session", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *PostgresStore) ListSessions() ([]models.WizardSession, error) {
	rows, err := s.db.Query(`SELECT id, status, seed_state, draft, prefill, created_at, updated_at
		FROM wizard_sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.WizardSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Error("PostgresStore ListSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

// AddOrderReceipt records a submitted order.
func (s *PostgresStore) AddOrderReceipt(r models.OrderReceipt) error {
	_, err := s.db.Exec(`INSERT INTO order_receipts (case_number, company_id, package_id, participant_name, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		r.CaseNumber, r.CompanyID, r.PackageID, r.ParticipantName, r.SubmittedAt)
	if err != nil {
		slog.Error("PostgresStore AddOrderReceipt failed", "error", err, "case_number", r.CaseNumber)
		return fmt.Errorf("failed to insert receipt for case %s: %w", r.CaseNumber, err)
	}
	slog.Debug("PostgresStore AddOrderReceipt succeeded", "case_number", r.CaseNumber)
	return nil
}

// GetOrderReceipts returns all recorded orders ordered by submission time.
func (s *PostgresStore) GetOrderReceipts() ([]models.OrderReceipt, error) {
	rows, err := s.db.Query(`SELECT case_number, company_id, package_id, participant_name, submitted_at
		FROM order_receipts ORDER BY submitted_at`)
	if err != nil {
		slog.Error("PostgresStore GetOrderReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.OrderReceipt
	for rows.Next() {
		var r models.OrderReceipt
		if err := rows.Scan(&r.CaseNumber, &r.CompanyID, &r.PackageID, &r.ParticipantName, &r.SubmittedAt); err != nil {
			slog.Error("PostgresStore GetOrderReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	slog.Debug("PostgresStore GetOrderReceipts succeeded", "count", len(receipts))
	return receipts, nil
}
