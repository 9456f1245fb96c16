package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// PostgresStore persists client registrations in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE clients (
//	    client_id          TEXT PRIMARY KEY,
//	    name               TEXT        NOT NULL,
//	    secret_hash        TEXT        NOT NULL DEFAULT '',
//	    redirect_uris      TEXT[]      NOT NULL DEFAULT '{}',
//	    post_logout_uris   TEXT[]      NOT NULL DEFAULT '{}',
//	    allowed_grants     TEXT[]      NOT NULL,
//	    allowed_scopes     TEXT[]      NOT NULL,
//	    allowed_resources  TEXT[]      NOT NULL DEFAULT '{}',
//	    pkce_required      BOOLEAN     NOT NULL,
//	    allow_plain_pkce   BOOLEAN     NOT NULL DEFAULT FALSE,
//	    code_lifetime_s    BIGINT      NOT NULL,
//	    token_lifetime_s   BIGINT      NOT NULL,
//	    refresh_lifetime_s BIGINT      NOT NULL,
//	    rotate_refresh     BOOLEAN     NOT NULL DEFAULT TRUE,
//	    status             TEXT        NOT NULL,
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed client store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, c *models.ClientInfo) error {
	const q = `
		INSERT INTO clients (
			client_id, name, secret_hash, redirect_uris, post_logout_uris,
			allowed_grants, allowed_scopes, allowed_resources,
			pkce_required, allow_plain_pkce,
			code_lifetime_s, token_lifetime_s, refresh_lifetime_s, rotate_refresh,
			status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (client_id) DO UPDATE SET
			name = EXCLUDED.name,
			secret_hash = EXCLUDED.secret_hash,
			redirect_uris = EXCLUDED.redirect_uris,
			post_logout_uris = EXCLUDED.post_logout_uris,
			allowed_grants = EXCLUDED.allowed_grants,
			allowed_scopes = EXCLUDED.allowed_scopes,
			allowed_resources = EXCLUDED.allowed_resources,
			pkce_required = EXCLUDED.pkce_required,
			allow_plain_pkce = EXCLUDED.allow_plain_pkce,
			code_lifetime_s = EXCLUDED.code_lifetime_s,
			token_lifetime_s = EXCLUDED.token_lifetime_s,
			refresh_lifetime_s = EXCLUDED.refresh_lifetime_s,
			rotate_refresh = EXCLUDED.rotate_refresh,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`
	grants := make([]string, len(c.AllowedGrants))
	for i, g := range c.AllowedGrants {
		grants[i] = string(g)
	}
	_, err := s.pool.Exec(ctx, q,
		c.ClientID, c.Name, c.ClientSecretHash, c.RedirectURIs, c.PostLogoutURIs,
		grants, c.AllowedScopes, c.AllowedResources,
		c.PKCERequired, c.AllowPlainPKCE,
		int64(c.CodeLifetime/time.Second), int64(c.TokenLifetime/time.Second),
		int64(c.RefreshLifetime/time.Second), c.RotateRefresh,
		string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save client: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID string) (*models.ClientInfo, error) {
	const q = `
		SELECT client_id, name, secret_hash, redirect_uris, post_logout_uris,
		       allowed_grants, allowed_scopes, allowed_resources,
		       pkce_required, allow_plain_pkce,
		       code_lifetime_s, token_lifetime_s, refresh_lifetime_s, rotate_refresh,
		       status, created_at, updated_at
		FROM clients WHERE client_id = $1`
	var c models.ClientInfo
	var grants []string
	var codeS, tokenS, refreshS int64
	var status string
	err := s.pool.QueryRow(ctx, q, clientID).Scan(
		&c.ClientID, &c.Name, &c.ClientSecretHash, &c.RedirectURIs, &c.PostLogoutURIs,
		&grants, &c.AllowedScopes, &c.AllowedResources,
		&c.PKCERequired, &c.AllowPlainPKCE,
		&codeS, &tokenS, &refreshS, &c.RotateRefresh,
		&status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	c.AllowedGrants = make([]models.GrantType, len(grants))
	for i, g := range grants {
		c.AllowedGrants[i] = models.GrantType(g)
	}
	c.CodeLifetime = time.Duration(codeS) * time.Second
	c.TokenLifetime = time.Duration(tokenS) * time.Second
	c.RefreshLifetime = time.Duration(refreshS) * time.Second
	c.Status = models.ClientStatus(status)
	return &c, nil
}
