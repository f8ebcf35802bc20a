// Package render produces cloud-init user data, addon manifests and
// Helm values from embedded Go templates. Templates run with
// missingkey=error so a variable the caller forgot to supply fails the
// render instead of producing a silently broken document.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"
)

//go:embed templates
var templatesFS embed.FS

// File renders a single embedded template by its path below templates/.
func File(name string, data any) (string, error) {
	content, err := templatesFS.ReadFile(path.Join("templates", name))
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return process(name, content, data)
}

// Manifests renders every YAML template in a directory below templates/
// and joins them into one multi-document YAML stream.
func Manifests(dir string, data any) ([]byte, error) {
	dirPath := path.Join("templates", dir)
	entries, err := templatesFS.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifests at %s: %w", dirPath, err)
	}

	var combined bytes.Buffer
	for _, entry := range entries {
		if entry.IsDir() || !isManifestFile(entry.Name()) {
			continue
		}
		content, err := templatesFS.ReadFile(path.Join(dirPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", entry.Name(), err)
		}
		processed, err := process(entry.Name(), content, data)
		if err != nil {
			return nil, err
		}
		if combined.Len() > 0 {
			combined.WriteString("\n---\n")
		}
		combined.WriteString(processed)
	}

	if combined.Len() == 0 {
		return nil, fmt.Errorf("no YAML manifests found in %s", dir)
	}
	return combined.Bytes(), nil
}

func isManifestFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func process(name string, content []byte, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
