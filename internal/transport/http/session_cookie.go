package httptransport

import (
	"net/http"
	"strings"
)

// sessionCookieName carries the session IDs the user agent holds. Several
// logins can coexist (account switching), so the value is a pipe-separated
// list, newest last.
const sessionCookieName = "ag_sid"

func readSessionIDs(r *http.Request) []string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	parts := strings.Split(cookie.Value, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	ids := readSessionIDs(r)
	for _, id := range ids {
		if id == sessionID {
			return
		}
	}
	ids = append(ids, sessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    strings.Join(ids, "|"),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
