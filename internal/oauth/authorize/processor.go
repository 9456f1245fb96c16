// Package authorize implements the authorization-endpoint decision flow:
// resolve the request, validate it, pick a session, settle consent, and mint
// the requested artifacts.
package authorize

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/audit"
	"authgate/internal/consent"
	"authgate/internal/oauth/fetch"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
	"authgate/internal/session"
)

// Processor drives one authorization attempt end to end. It is stateless;
// interaction restarts (login, account selection, consent) re-enter through
// Authorize with more context each time.
type Processor struct {
	fetcher  *fetch.Composite
	chain    *validation.Chain
	sessions *session.Service
	consents *consent.Provider
	grants   store.GrantStore
	issuer   *token.Issuer
	audit    audit.Publisher
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewProcessor(
	fetcher *fetch.Composite,
	chain *validation.Chain,
	sessions *session.Service,
	consents *consent.Provider,
	grants store.GrantStore,
	issuer *token.Issuer,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		fetcher:  fetcher,
		chain:    chain,
		sessions: sessions,
		consents: consents,
		grants:   grants,
		issuer:   issuer,
		audit:    auditor,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Authorize runs one authorization attempt. candidateSessionIDs are the
// session IDs the user agent presented; after account selection the HTTP
// layer narrows them to the chosen one and re-enters here.
func (p *Processor) Authorize(ctx context.Context, req models.AuthorizationRequest, candidateSessionIDs []string) Response {
	now := p.now()

	resolved, ferr := p.fetcher.Fetch(ctx, req)
	if ferr != nil {
		p.metrics.IncValidationFailure(string(ferr.Code))
		return errorResponse(ferr)
	}

	vc := validation.NewAuthorizationContext(resolved, now)
	if verr := p.chain.Run(ctx, vc); verr != nil {
		p.metrics.IncValidationFailure(string(verr.Code))
		return errorResponse(verr)
	}

	sessions, err := p.sessions.Available(ctx, candidateSessionIDs)
	if err != nil {
		return errorResponse(vc.Route(models.NewError(models.ErrServerError, "session lookup failed")))
	}
	eligible := filterEligible(sessions, resolved, now)

	switch resolved.Prompt {
	case models.PromptLogin:
		// Forced re-authentication disregards existing sessions entirely.
		return Response{Kind: KindLoginRequired}

	case models.PromptSelectAccount:
		if len(eligible) == 0 {
			return Response{Kind: KindLoginRequired}
		}
		return Response{Kind: KindAccountSelectionRequired, Sessions: eligible}

	case models.PromptNone:
		switch len(eligible) {
		case 0:
			return errorResponse(vc.Route(models.NewError(models.ErrLoginRequired, "no usable session and interaction is disallowed")))
		case 1:
			return p.settle(ctx, vc, resolved, eligible[0], false)
		default:
			return errorResponse(vc.Route(models.NewError(models.ErrAccountSelectionRequired, "multiple sessions and interaction is disallowed")))
		}

	case models.PromptConsent:
		switch len(eligible) {
		case 0:
			return Response{Kind: KindLoginRequired}
		case 1:
			return p.settle(ctx, vc, resolved, eligible[0], true)
		default:
			return Response{Kind: KindAccountSelectionRequired, Sessions: eligible}
		}

	case models.PromptUnspecified:
		switch len(eligible) {
		case 0:
			return Response{Kind: KindLoginRequired}
		case 1:
			return p.settle(ctx, vc, resolved, eligible[0], false)
		default:
			return Response{Kind: KindAccountSelectionRequired, Sessions: eligible}
		}

	default:
		// The prompt validator admits only the values above.
		panic("authorize: unvalidated prompt reached the processor")
	}
}

// settle runs the consent gate and, when clear, mints the artifacts.
// forceConsent re-prompts for everything regardless of prior grants.
func (p *Processor) settle(ctx context.Context, vc *validation.Context, req models.AuthorizationRequest, sess models.AuthSession, forceConsent bool) Response {
	scopes := scopeNames(vc.Scopes)

	var def models.ConsentDefinition
	if forceConsent {
		def = models.ConsentDefinition{
			PendingScopes:    scopes,
			PendingResources: vc.Resources,
			GrantedScopes:    []string{},
		}
	} else {
		var err error
		def, err = p.consents.UserConsents(ctx, sess.Subject, req.ClientID, scopes, vc.Resources)
		if err != nil {
			return errorResponse(vc.Route(models.NewError(models.ErrServerError, "consent lookup failed")))
		}
	}

	if def.HasPending() {
		if req.Prompt == models.PromptNone {
			return errorResponse(vc.Route(models.NewError(models.ErrConsentRequired, "consent is missing and interaction is disallowed")))
		}
		s := sess
		return Response{Kind: KindConsentRequired, Consent: def, Session: &s}
	}

	return p.issue(ctx, vc, req, sess)
}

// issue mints the artifacts the response type asks for and records the
// client on the session.
func (p *Processor) issue(ctx context.Context, vc *validation.Context, req models.AuthorizationRequest, sess models.AuthSession) Response {
	client := vc.Client
	actx := models.AuthorizationContext{
		ClientID:            client.ClientID,
		Scopes:              scopeNames(vc.Scopes),
		Resources:           vc.Resources,
		RequestedClaims:     req.Claims,
		RedirectURI:         req.RedirectURI,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	}

	mode := vc.ResponseMode
	if mode == "" || mode == models.ResponseModeDirect {
		mode = models.DefaultResponseMode(vc.ResponseType)
	}
	success := &Success{
		State:       req.State,
		SessionID:   sess.SessionID,
		Mode:        mode,
		RedirectURI: req.RedirectURI,
	}

	if vc.ResponseType.Code {
		grant := models.AuthorizedGrant{Session: sess, Context: actx, CreatedAt: p.now()}
		code, err := p.grants.Store(ctx, grant, client.CodeLifetime)
		if err != nil {
			p.log.Error().Err(err).Str("client_id", client.ClientID).Msg("authorization code issuance failed")
			return errorResponse(vc.Route(models.NewError(models.ErrServerError, "could not issue authorization code")))
		}
		success.Code = code
	}

	if vc.ResponseType.Token {
		access, err := p.issuer.CreateAccessToken(ctx, sess, actx, client)
		if err != nil {
			p.log.Error().Err(err).Str("client_id", client.ClientID).Msg("access token issuance failed")
			return errorResponse(vc.Route(models.NewError(models.ErrServerError, "could not issue access token")))
		}
		success.AccessToken = access.Token
		success.TokenType = "Bearer"
		success.ExpiresIn = int64(time.Until(access.ExpiresAt).Seconds())
		success.Scope = joinScopeNames(actx.Scopes)
		p.metrics.IncTokenIssued("access_token")
	}

	if vc.ResponseType.IDToken {
		artifacts := token.IDTokenArtifacts{
			AccessToken: success.AccessToken,
			Code:        success.Code,
			Alone:       !vc.ResponseType.Code && !vc.ResponseType.Token,
		}
		idToken, err := p.issuer.CreateIDToken(ctx, sess, actx, client, artifacts)
		if err != nil {
			p.log.Error().Err(err).Str("client_id", client.ClientID).Msg("id token issuance failed")
			return errorResponse(vc.Route(models.NewError(models.ErrServerError, "could not issue id token")))
		}
		success.IDToken = idToken.Token
		p.metrics.IncTokenIssued("id_token")
	}

	if err := p.sessions.RecordClientUse(ctx, sess.SessionID, client.ClientID); err != nil {
		// The artifacts are already minted; losing the bookkeeping write only
		// degrades logout notification, so log and continue.
		p.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("recording client use failed")
	}

	p.audit.Publish(ctx, audit.Event{
		Type:      audit.EventAuthorizationGranted,
		Subject:   sess.Subject,
		ClientID:  client.ClientID,
		SessionID: sess.SessionID,
		At:        p.now(),
	})
	return Response{Kind: KindAuthenticated, Success: success}
}

// GrantConsent records the user's approval and is called by the consent UI
// before it re-enters Authorize.
func (p *Processor) GrantConsent(ctx context.Context, subject, clientID string, scopes []string, resources []models.ResourceDefinition) error {
	return p.consents.Grant(ctx, subject, clientID, scopes, resources)
}

// filterEligible drops sessions that cannot satisfy the request's max_age or
// acr_values constraints, then orders the rest most-recent login first so
// selection is deterministic.
func filterEligible(sessions []models.AuthSession, req models.AuthorizationRequest, now time.Time) []models.AuthSession {
	out := make([]models.AuthSession, 0, len(sessions))
	for _, s := range sessions {
		if !s.SatisfiesMaxAge(req.MaxAge, now) {
			continue
		}
		if !s.SatisfiesACR(req.ACRValues) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AuthenticationTime.Equal(out[j].AuthenticationTime) {
			return out[i].AuthenticationTime.After(out[j].AuthenticationTime)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func scopeNames(defs []models.ScopeDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}

func joinScopeNames(names []string) string {
	return strings.Join(names, " ")
}
