package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datainfrapilot/dip/internal/apperror"
)

func TestVersions_Static(t *testing.T) {
	c := New("")

	versions, err := c.Versions(context.Background(), AppGrafana)
	require.NoError(t, err)
	assert.Equal(t, []string{"11.6", "11.5", "11.4"}, versions)

	versions, err = c.Versions(context.Background(), AppSpark)
	require.NoError(t, err)
	assert.Equal(t, []string{"3.5.5", "3.5.1", "3.5.0"}, versions)
}

func TestVersions_UnknownApplication(t *testing.T) {
	_, err := New("").Versions(context.Background(), 42)
	assert.True(t, apperror.IsNotFound(err))
}

func TestVersions_FetchedFiltersAndLimits(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"tag_name": "helm-chart/1.15.0"},
			{"tag_name": "2.10.3"},
			{"tag_name": "v2.10.2"},
			{"tag_name": "2.10.1"},
			{"tag_name": "2.10.0"},
			{"tag_name": "2.9.3"},
			{"tag_name": "2.9.2"},
			{"tag_name": "2.9.1"}
		]`))
	}))
	defer srv.Close()

	c := New("")
	app, err := c.ByID(AppAirflow)
	require.NoError(t, err)
	app.versionsURL = srv.URL

	versions, err := c.Versions(context.Background(), AppAirflow)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.10.3", "2.10.1", "2.10.0", "2.9.3", "2.9.2"}, versions,
		"non-matching tags are skipped and only the five newest are kept")
	assert.Equal(t, int32(1), requests.Load())
}

func TestVersions_CachedUntilTTL(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`[{"tag_name": "2.10.3"}]`))
	}))
	defer srv.Close()

	c := New("")
	app, err := c.ByID(AppAirflow)
	require.NoError(t, err)
	app.versionsURL = srv.URL

	clock := time.Now()
	c.versions.now = func() time.Time { return clock }

	_, err = c.Versions(context.Background(), AppAirflow)
	require.NoError(t, err)
	_, err = c.Versions(context.Background(), AppAirflow)
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load(), "second lookup within the TTL hits the cache")

	clock = clock.Add(versionTTL + time.Second)
	_, err = c.Versions(context.Background(), AppAirflow)
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load(), "expired entries are refetched")
}

func TestVersions_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("")
	app, err := c.ByID(AppAirflow)
	require.NoError(t, err)
	app.versionsURL = srv.URL

	_, err = c.Versions(context.Background(), AppAirflow)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInternal, apperror.CodeOf(err))
	assert.Contains(t, err.Error(), "returned 500")
}
