package models

import "strings"

// GrantType enumerates the token-endpoint grant types the engine understands.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantClientCredentials GrantType = "client_credentials"
	GrantDeviceCode        GrantType = "urn:ietf:params:oauth:grant-type:device_code"
	GrantCIBA              GrantType = "urn:openid:params:grant-type:ciba"
	GrantPassword          GrantType = "password"
)

func (g GrantType) IsValid() bool {
	switch g {
	case GrantAuthorizationCode, GrantRefreshToken, GrantClientCredentials,
		GrantDeviceCode, GrantCIBA, GrantPassword:
		return true
	}
	return false
}

// RequiresConfidentialClient reports whether the grant may only be used by
// clients that can keep a secret.
func (g GrantType) RequiresConfidentialClient() bool {
	return g == GrantClientCredentials
}

// ResponseType is the parsed set of artifacts requested at the authorization
// endpoint. OIDC allows space-separated combinations ("code id_token" etc.).
type ResponseType struct {
	Code    bool
	Token   bool
	IDToken bool
}

// ParseResponseType splits a raw response_type value. Unknown members make the
// whole value invalid; "none" must appear alone.
func ParseResponseType(raw string) (ResponseType, bool) {
	var rt ResponseType
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return rt, false
	}
	for _, f := range fields {
		switch f {
		case "code":
			rt.Code = true
		case "token":
			rt.Token = true
		case "id_token":
			rt.IDToken = true
		default:
			return ResponseType{}, false
		}
	}
	return rt, true
}

// IsImplicit reports whether the request issues tokens directly from the
// authorization endpoint with no code.
func (r ResponseType) IsImplicit() bool { return !r.Code && (r.Token || r.IDToken) }

// IsHybrid reports whether a code is issued alongside front-channel artifacts.
func (r ResponseType) IsHybrid() bool { return r.Code && (r.Token || r.IDToken) }

func (r ResponseType) String() string {
	parts := make([]string, 0, 3)
	if r.Code {
		parts = append(parts, "code")
	}
	if r.Token {
		parts = append(parts, "token")
	}
	if r.IDToken {
		parts = append(parts, "id_token")
	}
	return strings.Join(parts, " ")
}

// ResponseMode selects the channel an authorization response (success or
// error) travels back on.
type ResponseMode string

const (
	ResponseModeQuery    ResponseMode = "query"
	ResponseModeFragment ResponseMode = "fragment"
	ResponseModeFormPost ResponseMode = "form_post"
	// ResponseModeDirect is used by back-channel endpoints where the error is
	// a plain JSON body rather than a redirect.
	ResponseModeDirect ResponseMode = "direct"
)

func (m ResponseMode) IsValid() bool {
	switch m {
	case ResponseModeQuery, ResponseModeFragment, ResponseModeFormPost:
		return true
	}
	return false
}

// DefaultResponseMode returns the channel mandated when the client did not ask
// for one: fragment for any flow carrying tokens, query otherwise.
func DefaultResponseMode(rt ResponseType) ResponseMode {
	if rt.IsImplicit() || rt.IsHybrid() {
		return ResponseModeFragment
	}
	return ResponseModeQuery
}

// Prompt values steer session and consent interaction at the authorization
// endpoint.
type Prompt string

const (
	PromptUnspecified   Prompt = ""
	PromptNone          Prompt = "none"
	PromptLogin         Prompt = "login"
	PromptConsent       Prompt = "consent"
	PromptSelectAccount Prompt = "select_account"
)

func (p Prompt) IsValid() bool {
	switch p {
	case PromptUnspecified, PromptNone, PromptLogin, PromptConsent, PromptSelectAccount:
		return true
	}
	return false
}

// CodeChallengeMethod is the PKCE transform applied by the client.
type CodeChallengeMethod string

const (
	CodeChallengePlain CodeChallengeMethod = "plain"
	CodeChallengeS256  CodeChallengeMethod = "S256"
)
