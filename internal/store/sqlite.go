// Package store provides storage backends for OrderFlow.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/VeriScreen/OrderFlow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and receipts in an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession inserts or replaces a session row.
func (s *SQLiteStore) SaveSession(sess models.WizardSession) error {
	draftJSON, prefillJSON, err := encodeSession(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO wizard_sessions (id, status, seed_state, draft, prefill, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			seed_state = excluded.seed_state,
			draft = excluded.draft,
			prefill = excluded.prefill,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Status, sess.Seed, draftJSON, prefillJSON, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "session", sess.ID)
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "session", sess.ID)
	return nil
}

// GetSession returns a session by ID, or nil if none exists.
func (s *SQLiteStore) GetSession(id string) (*models.WizardSession, error) {
	row := s.db.QueryRow(`SELECT id, status, seed_state, draft, prefill, created_at, updated_at
		FROM wizard_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "session", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &sess, nil
}

// DeleteSession removes a session row.
func (s *SQLiteStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM wizard_sessions WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "session", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *SQLiteStore) ListSessions() ([]models.WizardSession, error) {
	rows, err := s.db.Query(`SELECT id, status, seed_state, draft, prefill, created_at, updated_at
		FROM wizard_sessions ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.WizardSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			slog.Error("SQLiteStore ListSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

// AddOrderReceipt records a submitted order.
func (s *SQLiteStore) AddOrderReceipt(r models.OrderReceipt) error {
	_, err := s.db.Exec(`INSERT INTO order_receipts (case_number, company_id, package_id, participant_name, submitted_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.CaseNumber, r.CompanyID, r.PackageID, r.ParticipantName, r.SubmittedAt)
	if err != nil {
		slog.Error("SQLiteStore AddOrderReceipt failed", "error", err, "case_number", r.CaseNumber)
		return fmt.Errorf("failed to insert receipt for case %s: %w", r.CaseNumber, err)
	}
	slog.Debug("SQLiteStore AddOrderReceipt succeeded", "case_number", r.CaseNumber)
	return nil
}

// GetOrderReceipts returns all recorded orders ordered by submission time.
func (s *SQLiteStore) GetOrderReceipts() ([]models.OrderReceipt, error) {
	rows, err := s.db.Query(`SELECT case_number, company_id, package_id, participant_name, submitted_at
		FROM order_receipts ORDER BY submitted_at`)
	if err != nil {
		slog.Error("SQLiteStore GetOrderReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.OrderReceipt
	for rows.Next() {
		var r models.OrderReceipt
		if err := rows.Scan(&r.CaseNumber, &r.CompanyID, &r.PackageID, &r.ParticipantName, &r.SubmittedAt); err != nil {
			slog.Error("SQLiteStore GetOrderReceipts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	slog.Debug("SQLiteStore GetOrderReceipts succeeded", "count", len(receipts))
	return receipts, nil
}
