package models

// ErrorCode is a standard OAuth 2.0 / OIDC protocol error identifier. These
// are wire values, not internal classifications; see pkg/domain-errors for
// the latter.
type ErrorCode string

const (
	ErrInvalidRequest           ErrorCode = "invalid_request"
	ErrInvalidClient            ErrorCode = "invalid_client"
	ErrInvalidGrant             ErrorCode = "invalid_grant"
	ErrUnauthorizedClient       ErrorCode = "unauthorized_client"
	ErrAccessDenied             ErrorCode = "access_denied"
	ErrUnsupportedResponseType  ErrorCode = "unsupported_response_type"
	ErrUnsupportedGrantType     ErrorCode = "unsupported_grant_type"
	ErrInvalidScope             ErrorCode = "invalid_scope"
	ErrInvalidTarget            ErrorCode = "invalid_target"
	ErrLoginRequired            ErrorCode = "login_required"
	ErrConsentRequired          ErrorCode = "consent_required"
	ErrAccountSelectionRequired ErrorCode = "account_selection_required"
	ErrInteractionRequired      ErrorCode = "interaction_required"
	ErrRequestNotSupported      ErrorCode = "request_not_supported"
	ErrRequestURINotSupported   ErrorCode = "request_uri_not_supported"
	ErrAuthorizationPending     ErrorCode = "authorization_pending"
	ErrSlowDown                 ErrorCode = "slow_down"
	ErrExpiredToken             ErrorCode = "expired_token"
	ErrInvalidRedirectURI       ErrorCode = "invalid_redirect_uri"
	ErrInvalidClientMetadata    ErrorCode = "invalid_client_metadata"
	ErrServerError              ErrorCode = "server_error"
)

// Error is the protocol-level failure surfaced to a client. It always carries
// enough routing information to deliver itself: redirect flows get the mode
// and redirect URI the success response would have used, back-channel flows
// get ResponseModeDirect and a JSON body.
//
// Invariant: RedirectURI is non-empty iff Mode is a redirect mode.
type Error struct {
	Code        ErrorCode
	Description string
	Mode        ResponseMode
	RedirectURI string
	State       string
	// RetryAfter is set only for rate-limit style errors (slow_down,
	// device-code lockout) and maps to a Retry-After header.
	RetryAfterSeconds int
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

// NewError builds a direct (JSON-body) protocol error.
func NewError(code ErrorCode, description string) *Error {
	return &Error{Code: code, Description: description, Mode: ResponseModeDirect}
}

// WithRedirect rebinds the error to a redirect channel, preserving state so
// the client can correlate the response.
func (e *Error) WithRedirect(mode ResponseMode, redirectURI, state string) *Error {
	out := *e
	out.Mode = mode
	out.RedirectURI = redirectURI
	out.State = state
	return &out
}
