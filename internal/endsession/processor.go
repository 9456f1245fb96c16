// Package endsession implements RP-initiated logout: validate the request,
// terminate the session, and send the user agent back to the client.
package endsession

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/validation"
	"authgate/internal/session"
)

// Result tells the HTTP layer where to send the user agent after logout.
// RedirectURI is empty when the request named no post-logout destination, in
// which case a neutral logged-out page is shown.
type Result struct {
	RedirectURI     string
	TerminatedCount int
	AffectedClients []string
}

// Processor drives one logout.
type Processor struct {
	chain    *validation.Chain
	sessions *session.Service
	audit    audit.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewProcessor(chain *validation.Chain, sessions *session.Service, auditor audit.Publisher, log zerolog.Logger) *Processor {
	return &Processor{
		chain:    chain,
		sessions: sessions,
		audit:    auditor,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// EndSession validates the logout request and terminates the sessions the
// user agent presented. Termination is best-effort per session; an unknown
// session ID is not an error.
func (p *Processor) EndSession(ctx context.Context, req models.EndSessionRequest, sessionIDs []string) (*Result, *models.Error) {
	vc := validation.NewEndSessionContext(req, p.now())
	if verr := p.chain.Run(ctx, vc); verr != nil {
		return nil, verr
	}

	result := &Result{}
	for _, id := range sessionIDs {
		sess, err := p.sessions.Terminate(ctx, id)
		if err != nil {
			p.log.Error().Err(err).Str("session_id", id).Msg("session termination failed")
			continue
		}
		if sess == nil {
			continue
		}
		result.TerminatedCount++
		result.AffectedClients = append(result.AffectedClients, sess.AffectedClientIDs...)
		p.audit.Publish(ctx, audit.Event{
			Type:      audit.EventSessionTerminated,
			Subject:   sess.Subject,
			ClientID:  req.ClientID,
			SessionID: sess.SessionID,
			At:        p.now(),
		})
	}

	if req.PostLogoutRedirectURI != "" {
		result.RedirectURI = appendState(req.PostLogoutRedirectURI, req.State)
	}
	return result, nil
}

// appendState attaches the client's state to the post-logout redirect so it
// can correlate the return.
func appendState(redirectURI, state string) string {
	if state == "" {
		return redirectURI
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}
