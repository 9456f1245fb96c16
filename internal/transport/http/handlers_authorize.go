package httptransport

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"authgate/internal/oauth/authorize"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
	"authgate/internal/session"
)

// UserAuthenticator verifies end-user credentials at the login endpoint.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (subject string, err error)
}

// AuthorizeHandler serves the authorization endpoint plus the login and
// consent interaction endpoints. The engine is headless: interaction steps
// come back as JSON documents the hosting UI renders, and only terminal
// outcomes travel on the OAuth redirect channel.
type AuthorizeHandler struct {
	processor *authorize.Processor
	sessions  *session.Service
	users     UserAuthenticator
	resources validation.ResourceRegistry
	metrics   *metrics.Metrics
}

func NewAuthorizeHandler(
	processor *authorize.Processor,
	sessions *session.Service,
	users UserAuthenticator,
	resources validation.ResourceRegistry,
	m *metrics.Metrics,
) *AuthorizeHandler {
	return &AuthorizeHandler{
		processor: processor,
		sessions:  sessions,
		users:     users,
		resources: resources,
		metrics:   m,
	}
}

func (h *AuthorizeHandler) Register(r chi.Router) {
	r.Get("/authorize", h.handleAuthorize)
	r.Post("/authorize", h.handleAuthorize)
	r.Post("/login", h.handleLogin)
	r.Post("/consent", h.handleConsent)
}

func (h *AuthorizeHandler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	req := models.ParseAuthorizationRequest(r.Form)

	sessionIDs := readSessionIDs(r)
	// After account selection the UI narrows the attempt to the chosen login.
	if selected := r.Form.Get("selected_session"); selected != "" {
		sessionIDs = []string{selected}
	}

	h.respond(w, r, h.processor.Authorize(r.Context(), req, sessionIDs), req)
}

func (h *AuthorizeHandler) respond(w http.ResponseWriter, r *http.Request, resp authorize.Response, req models.AuthorizationRequest) {
	switch resp.Kind {
	case authorize.KindError:
		writeOAuthError(w, r, resp.Err)

	case authorize.KindLoginRequired:
		writeJSON(w, http.StatusOK, map[string]any{
			"interaction": "login_required",
		})

	case authorize.KindAccountSelectionRequired:
		accounts := make([]map[string]string, 0, len(resp.Sessions))
		for _, s := range resp.Sessions {
			accounts = append(accounts, map[string]string{
				"session_id": s.SessionID,
				"subject":    s.Subject,
				"device":     s.DeviceDisplayName,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"interaction": "account_selection_required",
			"accounts":    accounts,
		})

	case authorize.KindConsentRequired:
		pendingResources := make([]string, 0, len(resp.Consent.PendingResources))
		for _, res := range resp.Consent.PendingResources {
			pendingResources = append(pendingResources, res.URI)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"interaction":       "consent_required",
			"session_id":        resp.Session.SessionID,
			"pending_scopes":    resp.Consent.PendingScopes,
			"pending_resources": pendingResources,
		})

	case authorize.KindAuthenticated:
		success := resp.Success
		params := url.Values{}
		if success.Code != "" {
			params.Set("code", success.Code)
		}
		if success.AccessToken != "" {
			params.Set("access_token", success.AccessToken)
			params.Set("token_type", success.TokenType)
			params.Set("expires_in", strconv.FormatInt(success.ExpiresIn, 10))
			params.Set("scope", success.Scope)
		}
		if success.IDToken != "" {
			params.Set("id_token", success.IDToken)
		}
		if success.State != "" {
			params.Set("state", success.State)
		}
		deliverRedirect(w, r, success.Mode, success.RedirectURI, params)

	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: string(models.ErrServerError)})
	}
}

// handleLogin establishes a session from primary credentials and retries the
// authorization when the original request parameters came along.
func (h *AuthorizeHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "username and password are required"))
		return
	}
	subject, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrAccessDenied, "authentication failed"))
		return
	}
	sess, err := h.sessions.SignIn(r.Context(), subject, "local", r.PostForm.Get("acr"), []string{"pwd"}, r.UserAgent())
	if err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrServerError, "could not establish session"))
		return
	}
	h.metrics.SessionsCreated.Inc()
	appendSessionCookie(w, r, sess.SessionID)

	if r.PostForm.Get("client_id") != "" {
		req := models.ParseAuthorizationRequest(r.PostForm)
		h.respond(w, r, h.processor.Authorize(r.Context(), req, []string{sess.SessionID}), req)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.SessionID})
}

// handleConsent records the user's approval and retries the authorization.
func (h *AuthorizeHandler) handleConsent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	sessionID := r.PostForm.Get("session_id")
	clientID := r.PostForm.Get("client_id")
	if sessionID == "" || clientID == "" {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "session_id and client_id are required"))
		return
	}
	available, err := h.sessions.Available(r.Context(), []string{sessionID})
	if err != nil || len(available) == 0 {
		writeOAuthError(w, r, models.NewError(models.ErrAccessDenied, "session is no longer valid"))
		return
	}
	sess := available[0]

	req := models.ParseAuthorizationRequest(r.PostForm)
	resources := make([]models.ResourceDefinition, 0, len(req.Resources))
	for _, uri := range req.Resources {
		def, rerr := h.resources.FindResource(r.Context(), uri)
		if rerr != nil || def == nil {
			writeOAuthError(w, r, models.NewError(models.ErrInvalidTarget, "resource is unknown"))
			return
		}
		resources = append(resources, def.FilterScopes(req.Scopes))
	}
	if gerr := h.processor.GrantConsent(r.Context(), sess.Subject, clientID, req.Scopes, resources); gerr != nil {
		writeOAuthError(w, r, models.NewError(models.ErrServerError, "consent could not be recorded"))
		return
	}
	h.respond(w, r, h.processor.Authorize(r.Context(), req, []string{sess.SessionID}), req)
}
