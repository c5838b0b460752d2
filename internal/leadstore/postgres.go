// Package leadstore is the read-only view of the CRM's lead records. The
// engine only ever reads an opaque identifier, a signal-attribute map, and
// a deliverable address; lead content stays in the CRM.
package leadstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Store reads lead references from PostgreSQL.
type Store struct{ db *sql.DB }

// New wraps an existing database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(db), nil
}

// Leads returns up to limit leads from the named audience, oldest first so
// scheduling order matches CRM arrival order. Attributes arrive as JSONB; a
// row whose attribute document does not parse is returned with no
// attributes rather than dropped, so ranking can degrade it instead of the
// whole batch failing.
func (s *Store) Leads(ctx context.Context, audience string, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(attributes, '{}'::jsonb)
		FROM outreach_leads
		WHERE audience = $1 AND unsubscribed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2
	`, audience, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}

		lead := domain.Lead{ID: id}
		if len(raw) > 0 {
			// Malformed documents leave Attributes nil; the ranker treats
			// missing signals as absent.
			_ = json.Unmarshal(raw, &lead.Attributes)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

// Attributes returns one lead's signal map.
func (s *Store) Attributes(ctx context.Context, leadID string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(attributes, '{}'::jsonb)
		FROM outreach_leads
		WHERE id = $1
	`, leadID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead attributes: %w", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("parse lead attributes: %w", err)
	}
	return attrs, nil
}

// Email resolves a lead reference to its deliverable address. Implements
// the sender's RecipientResolver.
func (s *Store) Email(ctx context.Context, leadID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `
		SELECT email
		FROM outreach_leads
		WHERE id = $1 AND unsubscribed_at IS NULL
	`, leadID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve lead email: %w", err)
	}
	return email, nil
}

// DB exposes the underlying handle for collaborators that share the
// connection, such as the advisory campaign lock.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying handle.
func (s *Store) Close() error { return s.db.Close() }
