package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ordersResource() ResourceDefinition {
	return ResourceDefinition{
		URI:  "https://api.example.com/orders",
		Name: "orders",
		Scopes: []ScopeDefinition{
			{Name: "orders:read", ClaimTypes: []string{"order_ids"}},
			{Name: "orders:write"},
		},
	}
}

func TestFilterScopes(t *testing.T) {
	t.Run("keeps exactly the intersection with metadata intact", func(t *testing.T) {
		filtered := ordersResource().FilterScopes([]string{"orders:read", "unrelated"})

		require.Len(t, filtered.Scopes, 1)
		require.Equal(t, "orders:read", filtered.Scopes[0].Name)
		require.Equal(t, []string{"order_ids"}, filtered.Scopes[0].ClaimTypes)
		require.Equal(t, "https://api.example.com/orders", filtered.URI)
	})

	t.Run("empty intersection is empty, not nil", func(t *testing.T) {
		filtered := ordersResource().FilterScopes([]string{"unrelated"})
		require.NotNil(t, filtered.Scopes)
		require.Empty(t, filtered.Scopes)
	})

	t.Run("filtering twice is a no-op", func(t *testing.T) {
		requested := []string{"orders:write"}
		once := ordersResource().FilterScopes(requested)
		twice := once.FilterScopes(requested)
		require.Equal(t, once, twice)
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		r := ordersResource()
		_ = r.FilterScopes([]string{"orders:read"})
		require.Len(t, r.Scopes, 2)
	})
}

func TestHasScope(t *testing.T) {
	r := ordersResource()
	require.True(t, r.HasScope("orders:read"))
	require.False(t, r.HasScope("orders:admin"))
}
