package httptransport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"authgate/internal/oauth/models"
)

func TestWriteOAuthError(t *testing.T) {
	t.Run("direct errors become a JSON body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/token", nil)

		writeOAuthError(rec, req, models.NewError(models.ErrInvalidRequest, "bad input"))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"invalid_request","error_description":"bad input"}`, rec.Body.String())
	})

	t.Run("redirect-bound errors go back through the user agent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/authorize", nil)

		oerr := models.NewError(models.ErrAccessDenied, "the user said no").
			WithRedirect(models.ResponseModeQuery, "https://app.example.com/cb", "xyz")
		writeOAuthError(rec, req, oerr)

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "app.example.com", loc.Host)
		require.Equal(t, "access_denied", loc.Query().Get("error"))
		require.Equal(t, "xyz", loc.Query().Get("state"))
	})

	t.Run("rate-limit errors carry Retry-After", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/token", nil)

		oerr := models.NewError(models.ErrSlowDown, "polling too fast")
		oerr.RetryAfterSeconds = 5
		writeOAuthError(rec, req, oerr)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "5", rec.Header().Get("Retry-After"))
	})
}

func TestDeliverRedirect(t *testing.T) {
	params := url.Values{"code": {"abc"}, "state": {"xyz"}}

	t.Run("query mode merges params into the redirect URI", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/authorize", nil)

		deliverRedirect(rec, req, models.ResponseModeQuery, "https://app.example.com/cb?keep=1", params)

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "abc", loc.Query().Get("code"))
		require.Equal(t, "1", loc.Query().Get("keep"))
	})

	t.Run("fragment mode keeps params out of the query", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/authorize", nil)

		deliverRedirect(rec, req, models.ResponseModeFragment, "https://app.example.com/cb", params)

		require.Equal(t, http.StatusFound, rec.Code)
		loc := rec.Header().Get("Location")
		require.Contains(t, loc, "#")
		parsed, err := url.Parse(loc)
		require.NoError(t, err)
		require.Empty(t, parsed.RawQuery)
		frag, err := url.ParseQuery(parsed.Fragment)
		require.NoError(t, err)
		require.Equal(t, "abc", frag.Get("code"))
	})

	t.Run("form_post renders an auto-submitting document", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/authorize", nil)

		deliverRedirect(rec, req, models.ResponseModeFormPost, "https://app.example.com/cb", params)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		body := rec.Body.String()
		require.Contains(t, body, `action="https://app.example.com/cb"`)
		require.Contains(t, body, `name="code" value="abc"`)
		require.Contains(t, body, `name="state" value="xyz"`)
	})
}

func TestSessionCookie(t *testing.T) {
	t.Run("reads a pipe-separated list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "a|b||c"})
		require.Equal(t, []string{"a", "b", "c"}, readSessionIDs(req))
	})

	t.Run("absent cookie reads as no sessions", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.Empty(t, readSessionIDs(req))
	})

	t.Run("append keeps existing IDs and deduplicates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "a"})

		rec := httptest.NewRecorder()
		appendSessionCookie(rec, req, "b")
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "a|b", cookies[0].Value)

		rec = httptest.NewRecorder()
		appendSessionCookie(rec, req, "a")
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("clear expires the cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		clearSessionCookie(rec)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, -1, cookies[0].MaxAge)
	})
}
