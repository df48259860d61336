package secrets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsMappedCredential(t *testing.T) {
	lookup := NewLookupFromFunc(func(key string) string {
		if key == "ADZUNA_APP_ID" {
			return "app-123"
		}
		return ""
	})

	val, ok := lookup.Get("adzuna_app_id")
	require.True(t, ok)
	require.Equal(t, "app-123", val)

	require.True(t, lookup.Has("Adzuna_App_ID"), "service names are case-insensitive")
}

func TestGetUnknownServiceOrEmptyValue(t *testing.T) {
	lookup := NewLookupFromFunc(func(key string) string {
		if key == "ADZUNA_APP_KEY" {
			return "   "
		}
		return ""
	})

	_, ok := lookup.Get("not_a_service")
	require.False(t, ok)

	_, ok = lookup.Get("adzuna_app_key")
	require.False(t, ok, "whitespace-only values count as missing")
	require.False(t, lookup.Has("linkedin"))
}
