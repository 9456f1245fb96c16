package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"authgate/internal/oauth/models"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/sentinel"
)

// Store persists authenticated sessions.
type Store interface {
	Save(ctx context.Context, sess *models.AuthSession) error
	FindByID(ctx context.Context, sessionID string) (*models.AuthSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// Service tracks authenticated end-user logins. The HTTP layer knows which
// session IDs a browser carries; this service turns them into live
// AuthSession candidates and owns the mutations the flows need.
type Service struct {
	store      Store
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(store Store, sessionTTL time.Duration) *Service {
	return &Service{store: store, sessionTTL: sessionTTL, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SignIn creates and persists a session for a fresh login. The user agent,
// when present, is parsed into a human-readable device name for the session
// management UI.
func (s *Service) SignIn(ctx context.Context, subject, idp, acr string, amr []string, userAgent string) (*models.AuthSession, error) {
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	now := s.now()
	sess := &models.AuthSession{
		SessionID:          uuid.NewString(),
		Subject:            subject,
		AuthenticationTime: now,
		IdentityProvider:   idp,
		ACR:                acr,
		AMR:                amr,
		DeviceDisplayName:  DeviceDisplayName(userAgent),
		ExpiresAt:          now.Add(s.sessionTTL),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist session")
	}
	return sess, nil
}

// Available resolves candidate session IDs into live sessions, dropping
// expired, revoked, and unknown ones silently.
func (s *Service) Available(ctx context.Context, sessionIDs []string) ([]models.AuthSession, error) {
	now := s.now()
	out := make([]models.AuthSession, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		sess, err := s.store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
		}
		if sess.IsAlive(now) {
			out = append(out, *sess)
		}
	}
	return out, nil
}

// RecordClientUse appends the client to the session's affected set and
// persists only when the set actually changed. Idempotent.
func (s *Service) RecordClientUse(ctx context.Context, sessionID, clientID string) error {
	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	}
	if !sess.AppendAffectedClient(clientID) {
		return nil
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist session")
	}
	return nil
}

// Terminate ends the session. Used by RP-initiated logout.
func (s *Service) Terminate(ctx context.Context, sessionID string) (*models.AuthSession, error) {
	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}
	if err := s.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "delete session")
	}
	return sess, nil
}

// DeviceDisplayName renders a user agent as "Browser on Platform" for the
// session list. Unknown agents still get a stable, non-empty name.
func DeviceDisplayName(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	platform := ua.Platform()
	if platform == "" {
		platform = ua.OS()
	}
	if name == "" {
		name = "Unknown Browser"
	}
	if platform == "" {
		platform = "Unknown Platform"
	}
	return strings.TrimSpace(name + " on " + platform)
}
