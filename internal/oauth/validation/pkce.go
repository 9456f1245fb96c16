package validation

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"authgate/internal/oauth/models"
)

// PKCEValidator enforces challenge policy at the authorization endpoint:
// required unless the client is confidential and opted out, method defaults
// to plain only when the registration explicitly allows it.
//
// Runs after ClientValidator.
type PKCEValidator struct{}

func NewPKCEValidator() *PKCEValidator { return &PKCEValidator{} }

func (v *PKCEValidator) Validate(_ context.Context, vc *Context) *models.Error {
	req := vc.Authorization
	if !vc.ResponseType.Code {
		// No code, nothing to prove possession of later.
		return nil
	}
	if req.CodeChallenge == "" {
		if vc.Client.RequiresPKCE() {
			return models.NewError(models.ErrInvalidRequest, "code_challenge is required for this client")
		}
		if req.CodeChallengeMethod != "" {
			return models.NewError(models.ErrInvalidRequest, "code_challenge_method without code_challenge")
		}
		return nil
	}
	if len(req.CodeChallenge) < 43 || len(req.CodeChallenge) > 128 {
		return models.NewError(models.ErrInvalidRequest, "code_challenge length must be between 43 and 128 characters")
	}
	switch req.CodeChallengeMethod {
	case models.CodeChallengeS256:
	case models.CodeChallengePlain:
		if !vc.Client.AllowPlainPKCE {
			return models.NewError(models.ErrInvalidRequest, "plain code_challenge_method is not allowed for this client")
		}
	case "":
		// Absent method defaults to plain per RFC 7636, which is only
		// acceptable when the registration says so.
		if !vc.Client.AllowPlainPKCE {
			return models.NewError(models.ErrInvalidRequest, "code_challenge_method is required")
		}
	default:
		return models.NewError(models.ErrInvalidRequest, "unsupported code_challenge_method")
	}
	return nil
}

// VerifyCodeVerifier checks a token-endpoint verifier against the challenge
// stored at authorization time. Comparison is constant-time.
func VerifyCodeVerifier(challenge string, method models.CodeChallengeMethod, verifier string) bool {
	if challenge == "" {
		// Authorization ran without PKCE; a verifier now is ignored.
		return verifier == ""
	}
	if verifier == "" {
		return false
	}
	var derived string
	switch method {
	case models.CodeChallengeS256:
		sum := sha256.Sum256([]byte(verifier))
		derived = base64.RawURLEncoding.EncodeToString(sum[:])
	case models.CodeChallengePlain, "":
		derived = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}
