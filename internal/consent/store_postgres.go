package consent

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists consent records in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE consents (
//	    subject     TEXT        NOT NULL,
//	    client_id   TEXT        NOT NULL,
//	    scopes      TEXT[]      NOT NULL,
//	    resources   TEXT[]      NOT NULL DEFAULT '{}',
//	    granted_at  TIMESTAMPTZ NOT NULL,
//	    expires_at  TIMESTAMPTZ,
//	    revoked_at  TIMESTAMPTZ
//	);
//	CREATE INDEX consents_subject_client_idx ON consents (subject, client_id);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO consents (subject, client_id, scopes, resources, granted_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var expiresAt *time.Time
	if !rec.ExpiresAt.IsZero() {
		expiresAt = &rec.ExpiresAt
	}
	_, err := s.pool.Exec(ctx, q,
		rec.Subject, rec.ClientID, rec.Scopes, rec.Resources,
		rec.GrantedAt, expiresAt, rec.RevokedAt)
	if err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindBySubjectClient(ctx context.Context, subject, clientID string) ([]Record, error) {
	const q = `
		SELECT subject, client_id, scopes, resources, granted_at, expires_at, revoked_at
		FROM consents
		WHERE subject = $1 AND client_id = $2`
	rows, err := s.pool.Query(ctx, q, subject, clientID)
	if err != nil {
		return nil, fmt.Errorf("find consents: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var expiresAt *time.Time
		if err := rows.Scan(&rec.Subject, &rec.ClientID, &rec.Scopes, &rec.Resources,
			&rec.GrantedAt, &expiresAt, &rec.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		if expiresAt != nil {
			rec.ExpiresAt = *expiresAt
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}
