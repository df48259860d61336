package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	systemclock "github.com/jobradar/jobradar/internal/clock/system"
	"github.com/jobradar/jobradar/internal/job"
	"github.com/jobradar/jobradar/internal/ratelimit"
	"github.com/jobradar/jobradar/internal/secrets"
)

func testProfile() job.Profile {
	return job.Profile{
		Keywords: []string{"développeur python"},
		Locations: []job.CountryPlaces{
			{Country: "switzerland", Places: []string{"geneva"}},
		},
	}
}

func testCreds(env map[string]string) *secrets.Lookup {
	return secrets.NewLookupFromFunc(func(key string) string { return env[key] })
}

func newTestAdzuna(t *testing.T, baseURL string, env map[string]string) *AdzunaAdapter {
	t.Helper()
	return NewAdzuna(
		AdzunaConfig{BaseURL: baseURL},
		testCreds(env),
		ratelimit.New(ratelimit.Config{}, nil),
		nil,
		systemclock.New(),
		zap.NewNop(),
	)
}

func TestAdzunaFetchParsesNestedResponse(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "id-123", r.URL.Query().Get("app_id"))
		assert.Equal(t, "key-456", r.URL.Query().Get("app_key"))
		assert.Equal(t, "geneva", r.URL.Query().Get("where"))
		assert.Contains(t, r.URL.Path, "/ch/search/1")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Développeur Python","company":{"display_name":"Acme SA"},"location":{"display_name":"Genève, Suisse"},"description":"Python et Django","redirect_url":"https://adzuna.example/1","salary_min":85000,"salary_max":110000},
			{"title":"Data Engineer","redirect_url":"https://adzuna.example/2"}
		]}`))
	}))
	defer srv.Close()

	a := newTestAdzuna(t, srv.URL, map[string]string{
		"ADZUNA_APP_ID":  "id-123",
		"ADZUNA_APP_KEY": "key-456",
	})

	res := a.Fetch(context.Background(), testProfile())

	require.NoError(t, res.Err)
	assert.False(t, res.Skipped)
	require.Len(t, res.Candidates, 2)
	assert.EqualValues(t, 1, calls.Load())

	first := res.Candidates[0]
	assert.Equal(t, "Développeur Python", first.Title)
	assert.Equal(t, "Acme SA", first.Company)
	assert.Equal(t, "Genève, Suisse", first.Location)
	require.NotNil(t, first.SalaryMin)
	assert.Equal(t, 85000.0, *first.SalaryMin)

	// Missing nested objects fall back to empty fields, not a parse error.
	second := res.Candidates[1]
	assert.Empty(t, second.Company)
	assert.Empty(t, second.Location)
	assert.Nil(t, second.SalaryMin)
}

func TestAdzunaFetchSkipsWithoutCredentials(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	a := newTestAdzuna(t, srv.URL, nil)

	res := a.Fetch(context.Background(), testProfile())

	assert.True(t, res.Skipped)
	assert.Empty(t, res.Candidates)
	assert.NoError(t, res.Err)
	assert.EqualValues(t, 0, calls.Load())
}

func TestAdzunaFetchToleratesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := newTestAdzuna(t, srv.URL, map[string]string{
		"ADZUNA_APP_ID":  "id",
		"ADZUNA_APP_KEY": "key",
	})

	res := a.Fetch(context.Background(), testProfile())

	assert.False(t, res.Skipped)
	assert.Empty(t, res.Candidates)
	assert.Error(t, res.Err)
}

func TestAdzunaFetchCapsKeywords(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	a := newTestAdzuna(t, srv.URL, map[string]string{
		"ADZUNA_APP_ID":  "id",
		"ADZUNA_APP_KEY": "key",
	})

	profile := testProfile()
	profile.Keywords = []string{"a", "b", "c", "d", "e"}
	a.Fetch(context.Background(), profile)

	assert.EqualValues(t, 3, calls.Load())
}
