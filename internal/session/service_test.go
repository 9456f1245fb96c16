package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SessionServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
	now     time.Time
}

func (s *SessionServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.service = NewService(NewInMemory(), 24*time.Hour).WithClock(func() time.Time { return s.now })
}

func TestSessionServiceSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}

// TestSignIn covers session creation.
func (s *SessionServiceSuite) TestSignIn() {
	s.Run("creates a session with identity and expiry", func() {
		sess, err := s.service.SignIn(s.ctx, "user-1", "local", "urn:default", []string{"pwd"}, "")
		s.Require().NoError(err)
		s.Require().NotEmpty(sess.SessionID)
		s.Require().Equal("user-1", sess.Subject)
		s.Require().Equal(s.now, sess.AuthenticationTime)
		s.Require().Equal(s.now.Add(24*time.Hour), sess.ExpiresAt)
		s.Require().Equal([]string{"pwd"}, sess.AMR)
	})

	s.Run("requires a subject", func() {
		_, err := s.service.SignIn(s.ctx, "", "local", "", nil, "")
		s.Require().Error(err)
	})

	s.Run("parses the user agent into a device display name", func() {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		sess, err := s.service.SignIn(s.ctx, "user-1", "local", "", nil, ua)
		s.Require().NoError(err)
		s.Require().Contains(sess.DeviceDisplayName, "Chrome")
	})
}

// TestAvailable covers candidate resolution.
func (s *SessionServiceSuite) TestAvailable() {
	s.Run("returns live sessions and drops unknown IDs silently", func() {
		sess, err := s.service.SignIn(s.ctx, "user-1", "local", "", nil, "")
		s.Require().NoError(err)

		live, err := s.service.Available(s.ctx, []string{sess.SessionID, "ghost"})
		s.Require().NoError(err)
		s.Require().Len(live, 1)
		s.Require().Equal(sess.SessionID, live[0].SessionID)
	})

	s.Run("drops expired sessions", func() {
		sess, err := s.service.SignIn(s.ctx, "user-1", "local", "", nil, "")
		s.Require().NoError(err)

		s.now = s.now.Add(48 * time.Hour)
		live, err := s.service.Available(s.ctx, []string{sess.SessionID})
		s.Require().NoError(err)
		s.Require().Empty(live)
	})

	s.Run("no candidates yields an empty slice", func() {
		live, err := s.service.Available(s.ctx, nil)
		s.Require().NoError(err)
		s.Require().Empty(live)
	})
}

// TestRecordClientUse covers the affected-client bookkeeping behind logout
// notification.
func (s *SessionServiceSuite) TestRecordClientUse() {
	sess, err := s.service.SignIn(s.ctx, "user-1", "local", "", nil, "")
	s.Require().NoError(err)

	s.Require().NoError(s.service.RecordClientUse(s.ctx, sess.SessionID, "web-app"))
	s.Require().NoError(s.service.RecordClientUse(s.ctx, sess.SessionID, "web-app"))
	s.Require().NoError(s.service.RecordClientUse(s.ctx, sess.SessionID, "spa"))

	live, err := s.service.Available(s.ctx, []string{sess.SessionID})
	s.Require().NoError(err)
	s.Require().Len(live, 1)
	s.Require().Equal([]string{"web-app", "spa"}, live[0].AffectedClientIDs)

	s.Require().Error(s.service.RecordClientUse(s.ctx, "ghost", "web-app"))
}

// TestTerminate covers logout.
func (s *SessionServiceSuite) TestTerminate() {
	s.Run("termination returns the session and removes it", func() {
		sess, err := s.service.SignIn(s.ctx, "user-1", "local", "", nil, "")
		s.Require().NoError(err)

		gone, err := s.service.Terminate(s.ctx, sess.SessionID)
		s.Require().NoError(err)
		s.Require().NotNil(gone)
		s.Require().Equal("user-1", gone.Subject)

		live, err := s.service.Available(s.ctx, []string{sess.SessionID})
		s.Require().NoError(err)
		s.Require().Empty(live)
	})

	s.Run("terminating an unknown session is a no-op", func() {
		gone, err := s.service.Terminate(s.ctx, "ghost")
		s.Require().NoError(err)
		s.Require().Nil(gone)
	})
}

// TestDeviceDisplayName covers user-agent rendering.
func TestDeviceDisplayName(t *testing.T) {
	t.Run("empty agent", func(t *testing.T) {
		if got := DeviceDisplayName(""); got != "Unknown Device" {
			t.Fatalf("DeviceDisplayName(%q) = %q, want %q", "", got, "Unknown Device")
		}
	})
	t.Run("gibberish agent still yields a name", func(t *testing.T) {
		got := DeviceDisplayName("definitely-not-a-browser")
		if got == "" {
			t.Fatal("expected a non-empty display name")
		}
	})
	t.Run("chrome on linux", func(t *testing.T) {
		got := DeviceDisplayName("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
		if !strings.Contains(got, "Chrome") {
			t.Fatalf("DeviceDisplayName = %q, want it to mention Chrome", got)
		}
	})
}
