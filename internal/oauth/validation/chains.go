package validation

// Chain constructors fix the validator order for each endpoint. The order is
// load-bearing: client resolution first, redirect legality before anything
// that may route errors over the redirect channel, resources before scopes.

// NewAuthorizationChain validates front-channel authorization requests.
func NewAuthorizationChain(clients ClientProvider, scopes ScopeRegistry, resources ResourceRegistry) *Chain {
	return NewChain(
		NewClientValidator(clients),
		NewRedirectURIValidator(),
		NewResponseTypeValidator(),
		NewResponseModeValidator(),
		NewPromptValidator(),
		NewNonceValidator(),
		NewPKCEValidator(),
		NewResourceValidator(resources),
		NewScopeValidator(scopes),
	)
}

// NewTokenChain validates token-endpoint requests prior to grant dispatch.
func NewTokenChain(clients ClientProvider, scopes ScopeRegistry, resources ResourceRegistry) *Chain {
	return NewChain(
		NewClientValidator(clients),
		NewClientSecretValidator(),
		NewGrantTypeValidator(),
		NewResourceValidator(resources),
		NewScopeValidator(scopes),
	)
}

// NewEndSessionChain validates RP-initiated logout requests.
func NewEndSessionChain(clients ClientProvider, hints IDTokenVerifier) *Chain {
	return NewChain(
		NewClientValidator(clients),
		NewIDTokenHintValidator(hints),
		NewPostLogoutURIValidator(),
	)
}

// NewPushedAuthorizationChain validates PAR payloads. Identical to the
// authorization chain except a nested request_uri is forbidden.
func NewPushedAuthorizationChain(clients ClientProvider, scopes ScopeRegistry, resources ResourceRegistry) *Chain {
	return NewChain(
		NewClientValidator(clients),
		NewRequestURIProhibitedValidator(),
		NewRedirectURIValidator(),
		NewResponseTypeValidator(),
		NewResponseModeValidator(),
		NewPromptValidator(),
		NewNonceValidator(),
		NewPKCEValidator(),
		NewResourceValidator(resources),
		NewScopeValidator(scopes),
	)
}

// NewBackChannelChain validates CIBA authentication requests.
func NewBackChannelChain(clients ClientProvider, scopes ScopeRegistry, resources ResourceRegistry) *Chain {
	return NewChain(
		NewClientValidator(clients),
		NewCIBAGrantValidator(),
		NewLoginHintValidator(),
		NewResourceValidator(resources),
		NewScopeValidator(scopes),
	)
}

// NewClientRegistrationChain validates dynamic registration payloads. No
// client resolution: the client does not exist yet.
func NewClientRegistrationChain() *Chain {
	return NewChain(
		NewRegistrationMetadataValidator(),
	)
}
