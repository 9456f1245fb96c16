package authorize

import "authgate/internal/oauth/models"

// Kind discriminates the authorization outcomes the HTTP layer renders.
type Kind int

const (
	// KindError carries a protocol error with its routing already decided.
	KindError Kind = iota
	// KindLoginRequired sends the user agent to the login UI.
	KindLoginRequired
	// KindAccountSelectionRequired sends the user agent to account selection
	// with the eligible sessions attached.
	KindAccountSelectionRequired
	// KindConsentRequired sends the user agent to the consent UI with the
	// pending delta attached.
	KindConsentRequired
	// KindAuthenticated is the terminal success: artifacts are minted and
	// ready for redirect delivery.
	KindAuthenticated
)

// Success carries the minted artifacts plus the delivery channel. Only fields
// matching the granted response type are set.
type Success struct {
	Code        string
	AccessToken string
	IDToken     string
	TokenType   string
	ExpiresIn   int64
	Scope       string
	State       string
	SessionID   string
	Mode        models.ResponseMode
	RedirectURI string
}

// Response is the sum of authorization outcomes. Exactly the fields implied
// by Kind are populated.
type Response struct {
	Kind Kind

	Err      *models.Error
	Sessions []models.AuthSession
	Consent  models.ConsentDefinition
	// Session backs the consent prompt so approval can resume with the same
	// login.
	Session *models.AuthSession
	Success *Success
}

func errorResponse(err *models.Error) Response {
	return Response{Kind: KindError, Err: err}
}
