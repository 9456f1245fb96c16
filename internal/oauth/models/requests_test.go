package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAuthorizationRequestMaxAge(t *testing.T) {
	parse := func(raw string) *int64 {
		values := url.Values{"client_id": {"web-app"}}
		if raw != "" {
			values.Set("max_age", raw)
		}
		return ParseAuthorizationRequest(values).MaxAge
	}

	t.Run("whole seconds are carried through", func(t *testing.T) {
		maxAge := parse("3600")
		require.NotNil(t, maxAge)
		require.Equal(t, int64(3600), *maxAge)
	})

	t.Run("zero is a valid max_age", func(t *testing.T) {
		maxAge := parse("0")
		require.NotNil(t, maxAge)
		require.Zero(t, *maxAge)
	})

	t.Run("absent parameter yields nil", func(t *testing.T) {
		require.Nil(t, parse(""))
	})

	t.Run("negative values are dropped", func(t *testing.T) {
		require.Nil(t, parse("-1"))
	})

	t.Run("non-numeric values are dropped", func(t *testing.T) {
		require.Nil(t, parse("soon"))
	})

	t.Run("values past the int64 range are dropped", func(t *testing.T) {
		require.Nil(t, parse("99999999999999999999"))
	})
}
