// Package catalog holds the application descriptors: config schema,
// access endpoint schema, volume requirements and chart coordinates.
// Descriptors are static; only version lists are fetched at runtime.
package catalog

import (
	"path/filepath"
	"regexp"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/helm"
	"github.com/datainfrapilot/dip/internal/model"
)

// OptionType enumerates config option value kinds.
type OptionType string

const (
	OptionText    OptionType = "text"
	OptionNumber  OptionType = "number"
	OptionSelect  OptionType = "select"
	OptionBoolean OptionType = "boolean"
)

// Condition gates an option's visibility on another option's value.
type Condition struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ConfigOption describes one entry of an application's config schema.
type ConfigOption struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Type     OptionType `json:"type"`
	Required bool       `json:"required"`
	Default  any        `json:"default,omitempty"`

	// Options lists the allowed values for select options. Fetched
	// marks a select whose values come from the version endpoint
	// instead of this static list.
	Options []string `json:"options,omitempty"`
	Fetched bool     `json:"fetched_versions,omitempty"`

	Conditional *Condition `json:"conditional,omitempty"`
}

// VolumeRequirement describes persistent storage an application needs.
type VolumeRequirement struct {
	Name        string `json:"name"`
	DefaultSize int    `json:"default_size"`
	Description string `json:"description"`
}

// EndpointSchema describes an access endpoint an application exposes.
type EndpointSchema struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	DefaultAccess model.AccessType `json:"default_access"`
	DefaultValue  string           `json:"default_value"`
	Required      bool             `json:"required"`
}

// SecretKeys names the username and password keys inside an
// application's credentials secret.
type SecretKeys struct {
	Username string
	Password string
}

// Application is one catalog entry.
type Application struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`

	Chart        helm.ChartRef `json:"-"`
	ArtifactPath string        `json:"-"`

	// CredentialsSecret is the in-cluster secret holding first-login
	// credentials; empty when the app has none. StaticCredentials
	// short-circuits the secret read for apps with fixed defaults.
	CredentialsSecret string             `json:"-"`
	SecretKeys        SecretKeys         `json:"-"`
	StaticCredentials *model.Credentials `json:"-"`

	Options   []ConfigOption      `json:"config_options"`
	Volumes   []VolumeRequirement `json:"volume_requirements"`
	Endpoints []EndpointSchema    `json:"access_endpoints"`

	// staticVersions serves the version list when versionsURL is
	// empty; otherwise versions are fetched and filtered by
	// versionPattern.
	staticVersions []string
	versionsURL    string
	versionPattern *regexp.Regexp
}

// Catalog is the loaded application set.
type Catalog struct {
	apps     []*Application
	byID     map[int]*Application
	versions *versionCache
}

// New loads the descriptor set. artifactsDir is the root of local
// chart bundles; descriptors keep paths relative to it.
func New(artifactsDir string) *Catalog {
	apps := applications(artifactsDir)
	byID := make(map[int]*Application, len(apps))
	for _, app := range apps {
		byID[app.ID] = app
	}
	return &Catalog{
		apps:     apps,
		byID:     byID,
		versions: newVersionCache(),
	}
}

// List returns all applications in registration order.
func (c *Catalog) List() []*Application {
	return c.apps
}

// ByID returns an application descriptor.
func (c *Catalog) ByID(id int) (*Application, error) {
	app, ok := c.byID[id]
	if !ok {
		return nil, apperror.Newf(apperror.CodeNotFound, "application %d not found", id)
	}
	return app, nil
}

func artifact(artifactsDir, name string) string {
	if artifactsDir == "" {
		return ""
	}
	return filepath.Join(artifactsDir, name)
}
