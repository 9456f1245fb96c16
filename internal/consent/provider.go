// Package consent tracks which scopes and resources an end user has granted
// to each client, and computes the delta a new authorization request still
// needs approved.
package consent

import (
	"context"
	"time"

	"authgate/internal/oauth/models"
	dErrors "authgate/pkg/domain-errors"
)

// Record is one persisted consent decision. A subject/client pair may
// accumulate several records over time; the effective grant is the union of
// the active ones.
type Record struct {
	Subject   string     `json:"subject"`
	ClientID  string     `json:"client_id"`
	Scopes    []string   `json:"scopes"`
	Resources []string   `json:"resources"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt time.Time  `json:"expires_at,omitzero"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// IsActive reports whether the record still contributes to the effective
// grant. A zero ExpiresAt means the consent never expires.
func (r Record) IsActive(now time.Time) bool {
	if r.RevokedAt != nil {
		return false
	}
	return r.ExpiresAt.IsZero() || now.Before(r.ExpiresAt)
}

// Store persists consent records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	FindBySubjectClient(ctx context.Context, subject, clientID string) ([]Record, error)
}

// Provider answers the two questions the authorization processor asks: what
// has this user already granted this client, and record that they just
// granted more.
type Provider struct {
	store      Store
	consentTTL time.Duration
	now        func() time.Time
}

// NewProvider constructs a provider. A zero consentTTL makes grants
// non-expiring.
func NewProvider(store Store, consentTTL time.Duration) *Provider {
	return &Provider{store: store, consentTTL: consentTTL, now: time.Now}
}

// WithClock overrides the time source for tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// UserConsents partitions the requested scopes and resources against the
// user's active grants. Resources are pending when any of their filtered
// scopes is not yet granted for that resource.
func (p *Provider) UserConsents(ctx context.Context, subject, clientID string, scopes []string, resources []models.ResourceDefinition) (models.ConsentDefinition, error) {
	records, err := p.store.FindBySubjectClient(ctx, subject, clientID)
	if err != nil {
		return models.ConsentDefinition{}, dErrors.Wrap(err, dErrors.CodeInternal, "consent lookup failed")
	}
	now := p.now()

	grantedScopes := make(map[string]bool)
	grantedResources := make(map[string]map[string]bool)
	for _, rec := range records {
		if !rec.IsActive(now) {
			continue
		}
		if len(rec.Resources) == 0 {
			for _, s := range rec.Scopes {
				grantedScopes[s] = true
			}
			continue
		}
		for _, uri := range rec.Resources {
			set := grantedResources[uri]
			if set == nil {
				set = make(map[string]bool)
				grantedResources[uri] = set
			}
			for _, s := range rec.Scopes {
				set[s] = true
			}
		}
	}

	def := models.ConsentDefinition{
		GrantedScopes: make([]string, 0, len(scopes)),
		PendingScopes: make([]string, 0),
	}
	for _, s := range scopes {
		if grantedScopes[s] {
			def.GrantedScopes = append(def.GrantedScopes, s)
		} else {
			def.PendingScopes = append(def.PendingScopes, s)
		}
	}
	for _, res := range resources {
		set := grantedResources[res.URI]
		pending := false
		for _, s := range res.Scopes {
			if !set[s.Name] {
				pending = true
				break
			}
		}
		if pending {
			def.PendingResources = append(def.PendingResources, res)
		} else {
			def.GrantedResources = append(def.GrantedResources, res)
		}
	}
	return def, nil
}

// Grant records a fresh approval covering the given scopes and resources.
func (p *Provider) Grant(ctx context.Context, subject, clientID string, scopes []string, resources []models.ResourceDefinition) error {
	now := p.now()
	rec := Record{
		Subject:   subject,
		ClientID:  clientID,
		Scopes:    scopes,
		GrantedAt: now,
	}
	if p.consentTTL > 0 {
		rec.ExpiresAt = now.Add(p.consentTTL)
	}
	for _, res := range resources {
		rec.Resources = append(rec.Resources, res.URI)
	}
	if err := p.store.Save(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist consent")
	}
	return nil
}
