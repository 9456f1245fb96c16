package clients

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"golang.org/x/crypto/bcrypt"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/validation"
	dErrors "authgate/pkg/domain-errors"
)

// RegistrationResult is what a dynamic-registration caller gets back. The
// plaintext secret appears exactly once, here; only its hash is stored.
type RegistrationResult struct {
	Client       *models.ClientInfo `json:"client"`
	ClientSecret string             `json:"client_secret,omitempty"`
}

// RegistrationService implements dynamic client registration: metadata runs
// through the registration validator chain, confidential clients get a
// generated secret, and the registration lands in the store.
type RegistrationService struct {
	chain *validation.Chain
	store Store
	now   func() time.Time
}

func NewRegistrationService(store Store) *RegistrationService {
	return &RegistrationService{
		chain: validation.NewClientRegistrationChain(),
		store: store,
		now:   time.Now,
	}
}

// Register validates and persists a new client.
func (s *RegistrationService) Register(ctx context.Context, req models.ClientRegistrationRequest) (*RegistrationResult, *models.Error) {
	now := s.now()
	vc := validation.NewRegistrationContext(req, now)
	if verr := s.chain.Run(ctx, vc); verr != nil {
		return nil, verr
	}

	var secret, secretHash string
	if req.Confidential {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, models.NewError(models.ErrServerError, "secret generation failed")
		}
		secret = base64.RawURLEncoding.EncodeToString(raw)
		hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewError(models.ErrServerError, "secret hashing failed")
		}
		secretHash = string(hashed)
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}
	clientID, err := newClientID()
	if err != nil {
		return nil, models.NewError(models.ErrServerError, "client id generation failed")
	}
	client, err := models.NewClientInfo(
		clientID, req.Name, secretHash, req.RedirectURIs, req.GrantTypes, scopes, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, models.NewError(models.ErrInvalidClientMetadata, err.Error())
		}
		return nil, models.NewError(models.ErrServerError, "registration failed")
	}
	client.PostLogoutURIs = req.PostLogoutURIs

	if err := s.store.Save(ctx, client); err != nil {
		return nil, models.NewError(models.ErrServerError, "registration could not be stored")
	}
	return &RegistrationResult{Client: client, ClientSecret: secret}, nil
}

func newClientID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "client_" + base64.RawURLEncoding.EncodeToString(raw), nil
}
