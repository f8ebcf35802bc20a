package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/datainfrapilot/dip/internal/apperror"
)

const versionTTL = 5 * time.Minute

type versionEntry struct {
	versions []string
	expires  time.Time
}

// versionCache memoizes upstream version lookups per application with
// a TTL and single-flight fetches.
type versionCache struct {
	mu      sync.Mutex
	entries map[int]versionEntry
	group   singleflight.Group
	client  *http.Client
	now     func() time.Time
}

func newVersionCache() *versionCache {
	return &versionCache{
		entries: make(map[int]versionEntry),
		client:  &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
}

// Versions returns the selectable versions for an application. Static
// lists come straight from the descriptor; fetched lists are cached
// for five minutes and deduplicated across concurrent callers.
func (c *Catalog) Versions(ctx context.Context, appID int) ([]string, error) {
	app, err := c.ByID(appID)
	if err != nil {
		return nil, err
	}
	if app.versionsURL == "" {
		return app.staticVersions, nil
	}
	return c.versions.get(ctx, app)
}

func (vc *versionCache) get(ctx context.Context, app *Application) ([]string, error) {
	vc.mu.Lock()
	entry, ok := vc.entries[app.ID]
	if ok && vc.now().Before(entry.expires) {
		vc.mu.Unlock()
		return entry.versions, nil
	}
	vc.mu.Unlock()

	result, err, _ := vc.group.Do(fmt.Sprintf("versions-%d", app.ID), func() (any, error) {
		versions, err := vc.fetch(ctx, app)
		if err != nil {
			return nil, err
		}
		vc.mu.Lock()
		vc.entries[app.ID] = versionEntry{versions: versions, expires: vc.now().Add(versionTTL)}
		vc.mu.Unlock()
		return versions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// fetch pulls release tags from the upstream registry and keeps the
// five newest matching the application's version pattern.
func (vc *versionCache) fetch(ctx context.Context, app *Application) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, app.versionsURL, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal, "failed to build version request", err)
	}

	resp, err := vc.client.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal,
			"failed to fetch versions for "+app.Key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Newf(apperror.CodeInternal,
			"version registry for %s returned %d", app.Key, resp.StatusCode)
	}

	var releases []struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, apperror.Wrap(apperror.CodeInternal,
			"failed to decode versions for "+app.Key, err)
	}

	versions := make([]string, 0, 5)
	for _, release := range releases {
		if app.versionPattern != nil && !app.versionPattern.MatchString(release.TagName) {
			continue
		}
		versions = append(versions, release.TagName)
		if len(versions) == 5 {
			break
		}
	}
	return versions, nil
}
