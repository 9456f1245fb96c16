package token

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "authgate/pkg/domain-errors"
)

// JWTValidator is the opaque crypto boundary for verifying signed request
// objects. The engine never inspects key material; it hands the raw JWT over
// and receives verified claims or an error.
type JWTValidator interface {
	Validate(ctx context.Context, raw string) (map[string]any, error)
}

// HMACRequestObjectValidator verifies HS256 request objects against a shared
// key. Deployments using asymmetric client keys swap in their own
// JWTValidator; the engine only sees the interface.
type HMACRequestObjectValidator struct {
	key []byte
}

func NewHMACRequestObjectValidator(key []byte) *HMACRequestObjectValidator {
	return &HMACRequestObjectValidator{key: key}
}

func (v *HMACRequestObjectValidator) Validate(_ context.Context, raw string) (map[string]any, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.key, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "request object verification failed")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "request object carries no claims")
	}
	return claims, nil
}

// ClaimsToValues flattens verified request-object claims into url.Values so
// they can be re-parsed through the ordinary request constructor. Claim
// values are strings or string slices; anything else is dropped.
func ClaimsToValues(claims map[string]any) url.Values {
	values := url.Values{}
	for key, raw := range claims {
		switch v := raw.(type) {
		case string:
			values.Set(key, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					values.Add(key, s)
				}
			}
		case float64:
			// JWT numeric claims that matter here (max_age) are whole seconds.
			values.Set(key, strconv.FormatInt(int64(v), 10))
		}
	}
	return values
}

// SplitScopeClaim turns the space-separated scope claim into a slice.
func SplitScopeClaim(raw string) []string {
	return strings.Fields(raw)
}
