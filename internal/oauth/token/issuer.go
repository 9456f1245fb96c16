package token

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	dErrors "authgate/pkg/domain-errors"
)

// EncodedToken is a minted token plus the bookkeeping callers need.
type EncodedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// AccessClaims are the JWT claims carried by access tokens.
type AccessClaims struct {
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id"`
	Resources []string `json:"aud_resources,omitempty"`
	jwt.RegisteredClaims
}

// IDClaims are the JWT claims carried by ID tokens.
type IDClaims struct {
	Nonce    string   `json:"nonce,omitempty"`
	AuthTime int64    `json:"auth_time"`
	ACR      string   `json:"acr,omitempty"`
	AMR      []string `json:"amr,omitempty"`
	AtHash   string   `json:"at_hash,omitempty"`
	CHash    string   `json:"c_hash,omitempty"`
	jwt.RegisteredClaims
}

// IDTokenArtifacts names the sibling artifacts issued alongside an ID token.
// Hash claims depend on it: at_hash binds a co-issued access token, c_hash a
// co-issued code, and an ID token issued alone carries neither.
type IDTokenArtifacts struct {
	AccessToken string
	Code        string
	Alone       bool
}

// Issuer mints access and ID tokens and records their JTIs for
// introspection and revocation. Signing is HS256 over a shared key; the key
// material and algorithm are a deployment concern injected at construction.
type Issuer struct {
	signingKey []byte
	issuer     string
	issued     store.IssuedTokenStore
	now        func() time.Time
}

func NewIssuer(signingKey []byte, issuerURL string, issued store.IssuedTokenStore) *Issuer {
	return &Issuer{
		signingKey: signingKey,
		issuer:     issuerURL,
		issued:     issued,
		now:        time.Now,
	}
}

// WithClock overrides the time source for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// CreateAccessToken mints an access token bound to the session and granted
// context, with the client's configured lifetime.
func (i *Issuer) CreateAccessToken(
	ctx context.Context,
	session models.AuthSession,
	actx models.AuthorizationContext,
	client *models.ClientInfo,
) (EncodedToken, error) {
	now := i.now()
	expiresAt := now.Add(client.TokenLifetime)
	jti := uuid.NewString()

	resources := make([]string, 0, len(actx.Resources))
	for _, r := range actx.Resources {
		resources = append(resources, r.URI)
	}

	claims := AccessClaims{
		Scope:     joinScopes(actx.Scopes),
		ClientID:  actx.ClientID,
		Resources: resources,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   session.Subject,
			Audience:  audience(resources, actx.ClientID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return EncodedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}
	meta := models.IssuedTokenMeta{
		Subject:   session.Subject,
		ClientID:  actx.ClientID,
		Scopes:    actx.Scopes,
		TokenType: "access_token",
		ExpiresAt: expiresAt,
		IssuedAt:  now,
	}
	if err := i.issued.Record(ctx, jti, meta); err != nil {
		return EncodedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "record issued token")
	}
	return EncodedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// CreateIDToken mints an ID token reflecting which sibling artifacts exist.
func (i *Issuer) CreateIDToken(
	ctx context.Context,
	session models.AuthSession,
	actx models.AuthorizationContext,
	client *models.ClientInfo,
	artifacts IDTokenArtifacts,
) (EncodedToken, error) {
	now := i.now()
	expiresAt := now.Add(client.TokenLifetime)
	jti := uuid.NewString()

	claims := IDClaims{
		Nonce:    actx.Nonce,
		AuthTime: session.AuthenticationTime.Unix(),
		ACR:      session.ACR,
		AMR:      session.AMR,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   session.Subject,
			Audience:  []string{actx.ClientID},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	if !artifacts.Alone {
		if artifacts.AccessToken != "" {
			claims.AtHash = leftHalfHash(artifacts.AccessToken)
		}
		if artifacts.Code != "" {
			claims.CHash = leftHalfHash(artifacts.Code)
		}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return EncodedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign id token")
	}
	meta := models.IssuedTokenMeta{
		Subject:   session.Subject,
		ClientID:  actx.ClientID,
		TokenType: "id_token",
		ExpiresAt: expiresAt,
		IssuedAt:  now,
	}
	if err := i.issued.Record(ctx, jti, meta); err != nil {
		return EncodedToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "record issued token")
	}
	return EncodedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// NewRefreshTokenValue mints the opaque refresh-token string. Kept here so
// all token material comes from one place.
func NewRefreshTokenValue() string {
	return "rt_" + uuid.NewString()
}

// leftHalfHash is the OIDC half-hash: base64url of the left 128 bits of the
// SHA-256 of the value, used for at_hash and c_hash with HS256/RS256.
func leftHalfHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func audience(resources []string, clientID string) jwt.ClaimStrings {
	if len(resources) > 0 {
		return resources
	}
	return []string{clientID}
}
