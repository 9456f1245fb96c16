package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExactMatchURIValidator(t *testing.T) {
	cases := []struct {
		name       string
		registered string
		candidate  string
		want       bool
	}{
		{"identical", "https://example.com/callback", "https://example.com/callback", true},
		{"scheme mismatch", "https://example.com/callback", "http://example.com/callback", false},
		{"host mismatch", "https://example.com/callback", "https://evil.com/callback", false},
		{"port mismatch", "https://example.com/callback", "https://example.com:8443/callback", false},
		{"path mismatch", "https://example.com/callback", "https://example.com/callback/extra", false},
		{"query mismatch", "https://example.com/callback", "https://example.com/callback?x=1", false},
		{"query match", "https://example.com/callback?x=1", "https://example.com/callback?x=1", true},
		{"fragment is ignored", "https://example.com/callback", "https://example.com/callback#top", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewExactMatchURIValidator(tc.registered)
			require.NoError(t, err)
			require.Equal(t, tc.want, v.IsValid(tc.candidate))
		})
	}

	t.Run("loose matching ignores the query", func(t *testing.T) {
		v, err := NewLooseMatchURIValidator("https://example.com/callback")
		require.NoError(t, err)
		require.True(t, v.IsValid("https://example.com/callback?x=1"))
		require.False(t, v.IsValid("https://example.com/other?x=1"))
	})
}

func TestMatchesAnyRegistered(t *testing.T) {
	registered := []string{
		"https://app.example.com/cb",
		"https://app.example.com/alt",
	}
	require.True(t, MatchesAnyRegistered(registered, "https://app.example.com/alt"))
	require.False(t, MatchesAnyRegistered(registered, "https://app.example.com/nope"))
	require.False(t, MatchesAnyRegistered(nil, "https://app.example.com/cb"))
}
