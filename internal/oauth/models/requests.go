package models

import (
	"net/url"
	"strconv"
	"strings"
)

// AuthorizationRequest is the immutable input to the authorization endpoint.
// It is built once at the HTTP boundary; fetchers that resolve a request
// object or PAR reference return a new value rather than mutating this one.
type AuthorizationRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseTypeRaw     string
	ResponseModeRaw     string
	Scopes              []string
	Resources           []string
	State               string
	Nonce               string
	Prompt              Prompt
	MaxAge              *int64
	ACRValues           []string
	Claims              string
	CodeChallenge       string
	CodeChallengeMethod CodeChallengeMethod
	// RequestObject / RequestURI carry the indirection parameters resolved by
	// the fetch package before validation runs.
	RequestObject string
	RequestURI    string
}

// ParseAuthorizationRequest maps decoded form/query values into a request.
// No validation happens here; the validator chain owns that.
func ParseAuthorizationRequest(values url.Values) AuthorizationRequest {
	var maxAge *int64
	if raw := values.Get("max_age"); raw != "" {
		if v, ok := parseNonNegative(raw); ok {
			maxAge = &v
		}
	}
	return AuthorizationRequest{
		ClientID:            values.Get("client_id"),
		RedirectURI:         values.Get("redirect_uri"),
		ResponseTypeRaw:     values.Get("response_type"),
		ResponseModeRaw:     values.Get("response_mode"),
		Scopes:              splitSpace(values.Get("scope")),
		Resources:           values["resource"],
		State:               values.Get("state"),
		Nonce:               values.Get("nonce"),
		Prompt:              Prompt(values.Get("prompt")),
		MaxAge:              maxAge,
		ACRValues:           splitSpace(values.Get("acr_values")),
		Claims:              values.Get("claims"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: CodeChallengeMethod(values.Get("code_challenge_method")),
		RequestObject:       values.Get("request"),
		RequestURI:          values.Get("request_uri"),
	}
}

// TokenRequest is the immutable input to the token endpoint.
type TokenRequest struct {
	GrantType    GrantType
	ClientID     string
	ClientSecret string
	Code         string
	CodeVerifier string
	RedirectURI  string
	RefreshToken string
	Scopes       []string
	Resources    []string
	DeviceCode   string
	AuthReqID    string
	Username     string
	Password     string
}

func ParseTokenRequest(values url.Values) TokenRequest {
	return TokenRequest{
		GrantType:    GrantType(values.Get("grant_type")),
		ClientID:     values.Get("client_id"),
		ClientSecret: values.Get("client_secret"),
		Code:         values.Get("code"),
		CodeVerifier: values.Get("code_verifier"),
		RedirectURI:  values.Get("redirect_uri"),
		RefreshToken: values.Get("refresh_token"),
		Scopes:       splitSpace(values.Get("scope")),
		Resources:    values["resource"],
		DeviceCode:   values.Get("device_code"),
		AuthReqID:    values.Get("auth_req_id"),
		Username:     values.Get("username"),
		Password:     values.Get("password"),
	}
}

// EndSessionRequest is the input to the RP-initiated logout endpoint.
type EndSessionRequest struct {
	IDTokenHint           string
	ClientID              string
	PostLogoutRedirectURI string
	State                 string
}

// BackChannelAuthenticationRequest is the input to the CIBA request endpoint.
type BackChannelAuthenticationRequest struct {
	ClientID          string
	Scopes            []string
	LoginHint         string
	LoginHintToken    string
	IDTokenHint       string
	BindingMessage    string
	ACRValues         []string
	RequestedExpiry   *int64
	ClientNotifyToken string
}

// DeviceAuthorizationInput is the input to the RFC 8628 device authorization
// endpoint (the request that creates a pending device record).
type DeviceAuthorizationInput struct {
	ClientID string
	Scopes   []string
}

// ClientRegistrationRequest is the dynamic-registration payload.
type ClientRegistrationRequest struct {
	Name           string      `json:"client_name"`
	RedirectURIs   []string    `json:"redirect_uris"`
	GrantTypes     []GrantType `json:"grant_types"`
	Scopes         []string    `json:"scope_list"`
	Confidential   bool        `json:"confidential"`
	PostLogoutURIs []string    `json:"post_logout_redirect_uris,omitempty"`
}

func splitSpace(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

func parseNonNegative(raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
