package fetch

import (
	"context"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/token"
)

// RequestObjectFetcher resolves the `request` parameter: a signed JWT whose
// claims replace the query parameters. Parameters outside the JWT are ignored
// except client_id, which must match the iss/client_id claim when present.
type RequestObjectFetcher struct {
	validator token.JWTValidator
}

func NewRequestObjectFetcher(validator token.JWTValidator) *RequestObjectFetcher {
	return &RequestObjectFetcher{validator: validator}
}

func (f *RequestObjectFetcher) Fetch(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationRequest, *models.Error) {
	if req.RequestObject == "" {
		return nil, nil
	}
	if f.validator == nil {
		return nil, models.NewError(models.ErrRequestNotSupported, "request objects are not supported")
	}
	claims, err := f.validator.Validate(ctx, req.RequestObject)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidRequest, "request object rejected")
	}
	values := token.ClaimsToValues(claims)
	if id := values.Get("client_id"); id != "" && id != req.ClientID {
		return nil, models.NewError(models.ErrInvalidRequest, "request object client_id mismatch")
	}
	values.Set("client_id", req.ClientID)
	resolved := models.ParseAuthorizationRequest(values)
	resolved.RequestObject = ""
	return &resolved, nil
}
