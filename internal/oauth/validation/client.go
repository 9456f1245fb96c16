package validation

import (
	"context"

	"authgate/internal/oauth/models"
)

// ClientProvider resolves client registrations. A nil result means the client
// is unknown; providers do not error for absence.
type ClientProvider interface {
	TryFindClient(ctx context.Context, clientID string) (*models.ClientInfo, error)
}

// ClientValidator resolves the client registration onto the context. It must
// be the first validator in every chain: everything downstream reads
// vc.Client.
type ClientValidator struct {
	clients ClientProvider
}

func NewClientValidator(clients ClientProvider) *ClientValidator {
	return &ClientValidator{clients: clients}
}

func (v *ClientValidator) Validate(ctx context.Context, vc *Context) *models.Error {
	clientID := vc.ClientID()
	if clientID == "" {
		return models.NewError(models.ErrInvalidRequest, "client_id is required")
	}
	client, err := v.clients.TryFindClient(ctx, clientID)
	if err != nil {
		return models.NewError(models.ErrServerError, "client lookup failed")
	}
	if client == nil || !client.IsActive() {
		return models.NewError(models.ErrInvalidClient, "unknown client")
	}
	vc.Client = client
	return nil
}

// ClientID extracts the client identifier from whichever request variant the
// context carries.
func (c *Context) ClientID() string {
	switch {
	case c.Authorization != nil:
		return c.Authorization.ClientID
	case c.Token != nil:
		return c.Token.ClientID
	case c.EndSession != nil:
		return c.EndSession.ClientID
	case c.BackChannel != nil:
		return c.BackChannel.ClientID
	}
	return ""
}
