package models

// ScopeDefinition describes one registered scope. ClaimTypes travel with the
// scope so tokens minted for it know which claims to embed.
type ScopeDefinition struct {
	Name       string   `json:"name"`
	ClaimTypes []string `json:"claim_types,omitempty"`
}

// ResourceDefinition is a protected API registered with the server
// (RFC 8707 resource indicator target). URI is the absolute identifier the
// client sends; Scopes are the only scopes this resource understands.
type ResourceDefinition struct {
	URI    string            `json:"uri"`
	Name   string            `json:"name"`
	Scopes []ScopeDefinition `json:"scopes"`
}

// HasScope reports whether the resource declares the named scope.
func (r ResourceDefinition) HasScope(name string) bool {
	for _, s := range r.Scopes {
		if s.Name == name {
			return true
		}
	}
	return false
}

// FilterScopes returns a copy of the resource whose Scopes are exactly the
// intersection of the declared scopes and the requested set, metadata
// preserved. An empty intersection yields an empty (not nil) slice so callers
// can tell "resource granted with no scopes" from "resource absent".
func (r ResourceDefinition) FilterScopes(requested []string) ResourceDefinition {
	out := r
	out.Scopes = make([]ScopeDefinition, 0, len(r.Scopes))
	for _, s := range r.Scopes {
		for _, want := range requested {
			if s.Name == want {
				out.Scopes = append(out.Scopes, s)
				break
			}
		}
	}
	return out
}
