package fetch

import (
	"context"
	"errors"
	"strings"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/pkg/platform/sentinel"
)

// RequestURIPrefix is the RFC 9126 namespace for pushed request URIs. Only
// URIs minted by the PAR endpoint are dereferenced; remote fetching is
// deliberately unsupported.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// PARFetcher resolves `request_uri` references against the PAR store,
// consuming them so each pushed request authorizes at most one
// authorization attempt.
type PARFetcher struct {
	store store.PARStore
}

func NewPARFetcher(st store.PARStore) *PARFetcher {
	return &PARFetcher{store: st}
}

func (f *PARFetcher) Fetch(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationRequest, *models.Error) {
	if req.RequestURI == "" {
		return nil, nil
	}
	if !strings.HasPrefix(req.RequestURI, RequestURIPrefix) {
		return nil, models.NewError(models.ErrRequestURINotSupported, "only pushed request URIs are supported")
	}
	stored, err := f.store.Consume(ctx, req.RequestURI)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.NewError(models.ErrInvalidRequest, "request_uri is unknown, expired, or already used")
		}
		return nil, models.NewError(models.ErrServerError, "request could not be resolved")
	}
	if req.ClientID != "" && stored.ClientID != req.ClientID {
		return nil, models.NewError(models.ErrInvalidRequest, "request_uri was pushed by a different client")
	}
	resolved := *stored
	resolved.RequestURI = ""
	return &resolved, nil
}
