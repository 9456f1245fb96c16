package clients

import (
	"context"
	"errors"

	"authgate/internal/oauth/models"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/sentinel"
)

// Store persists client registrations.
type Store interface {
	Save(ctx context.Context, client *models.ClientInfo) error
	FindByID(ctx context.Context, clientID string) (*models.ClientInfo, error)
}

// Registry resolves client registrations for the validator chains. Unknown
// clients resolve to nil, not an error.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) TryFindClient(ctx context.Context, clientID string) (*models.ClientInfo, error) {
	client, err := r.store.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "client lookup failed")
	}
	return client, nil
}
