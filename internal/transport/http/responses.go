package httptransport

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"authgate/internal/oauth/models"
)

func splitScopes(raw string) []string {
	return strings.Fields(raw)
}

// errorBody is the RFC 6749 JSON error envelope.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeOAuthError delivers a protocol error on whichever channel it is bound
// to: redirect modes go back through the user agent, everything else is a
// JSON body with the status the error code implies.
func writeOAuthError(w http.ResponseWriter, r *http.Request, oerr *models.Error) {
	if oerr.RedirectURI != "" && oerr.Mode != models.ResponseModeDirect {
		params := url.Values{}
		params.Set("error", string(oerr.Code))
		if oerr.Description != "" {
			params.Set("error_description", oerr.Description)
		}
		if oerr.State != "" {
			params.Set("state", oerr.State)
		}
		deliverRedirect(w, r, oerr.Mode, oerr.RedirectURI, params)
		return
	}
	if oerr.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(oerr.RetryAfterSeconds))
	}
	writeJSON(w, statusForCode(oerr.Code, oerr.RetryAfterSeconds > 0), errorBody{
		Error:            string(oerr.Code),
		ErrorDescription: oerr.Description,
	})
}

func statusForCode(code models.ErrorCode, rateLimited bool) int {
	switch code {
	case models.ErrServerError:
		return http.StatusInternalServerError
	case models.ErrInvalidClient:
		return http.StatusUnauthorized
	case models.ErrSlowDown:
		if rateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// deliverRedirect sends params back to the client via the response mode the
// request settled on.
func deliverRedirect(w http.ResponseWriter, r *http.Request, mode models.ResponseMode, redirectURI string, params url.Values) {
	switch mode {
	case models.ResponseModeFragment:
		http.Redirect(w, r, redirectURI+"#"+params.Encode(), http.StatusFound)
	case models.ResponseModeFormPost:
		renderFormPost(w, redirectURI, params)
	default:
		u, err := url.Parse(redirectURI)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: string(models.ErrServerError)})
			return
		}
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusFound)
	}
}

// formPostTemplate is the auto-submitting document OIDC form_post prescribes.
var formPostTemplate = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Submit This Form</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{range $name, $values := .Params}}{{range $values}}<input type="hidden" name="{{$name}}" value="{{.}}"/>
{{end}}{{end}}<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>`))

func renderFormPost(w http.ResponseWriter, action string, params url.Values) {
	w.Header().Set("Content-Type", "text/html;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = formPostTemplate.Execute(w, struct {
		Action string
		Params url.Values
	}{Action: action, Params: params})
}
