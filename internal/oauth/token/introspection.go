package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authgate/internal/oauth/store"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/sentinel"
)

// IntrospectionResult is the RFC 7662 response body. Inactive tokens carry
// only Active=false; no metadata leaks for unknown or revoked tokens.
type IntrospectionResult struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Subject   string `json:"sub,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	JTI       string `json:"jti,omitempty"`
}

// Introspector answers introspection and revocation against the issued-token
// bookkeeping. It parses presented JWTs only far enough to recover the JTI;
// signature verification happens with the same key the Issuer signs with.
type Introspector struct {
	signingKey []byte
	issued     store.IssuedTokenStore
	now        func() time.Time
}

func NewIntrospector(signingKey []byte, issued store.IssuedTokenStore) *Introspector {
	return &Introspector{signingKey: signingKey, issued: issued, now: time.Now}
}

// Introspect resolves the token's live state. Malformed and unknown tokens
// introspect as inactive, not as errors, per RFC 7662.
func (i *Introspector) Introspect(ctx context.Context, raw string) (IntrospectionResult, error) {
	jti, err := i.verifiedJTI(raw)
	if err != nil {
		return IntrospectionResult{Active: false}, nil
	}
	meta, err := i.issued.Find(ctx, jti)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return IntrospectionResult{Active: false}, nil
		}
		return IntrospectionResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "introspection lookup failed")
	}
	if !meta.Active(i.now()) {
		return IntrospectionResult{Active: false}, nil
	}
	return IntrospectionResult{
		Active:    true,
		Scope:     strings.Join(meta.Scopes, " "),
		ClientID:  meta.ClientID,
		Subject:   meta.Subject,
		TokenType: meta.TokenType,
		ExpiresAt: meta.ExpiresAt.Unix(),
		IssuedAt:  meta.IssuedAt.Unix(),
		JTI:       jti,
	}, nil
}

// Revoke marks the presented token revoked. Unknown tokens revoke
// successfully per RFC 7009: the client's desired state already holds.
func (i *Introspector) Revoke(ctx context.Context, raw string) error {
	jti, err := i.verifiedJTI(raw)
	if err != nil {
		return nil
	}
	if err := i.issued.Revoke(ctx, jti); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "revocation failed")
	}
	return nil
}

func (i *Introspector) verifiedJTI(raw string) (string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", jwt.ErrTokenInvalidId
	}
	return claims.ID, nil
}
