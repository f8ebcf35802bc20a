package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datainfrapilot/dip/internal/apperror"
	"github.com/datainfrapilot/dip/internal/model"
)

// Visible evaluates an option's conditional visibility against a
// config that already has defaults substituted. A hidden option is
// treated as absent everywhere.
func Visible(opt ConfigOption, cfg model.ConfigMap) bool {
	if opt.Conditional == nil {
		return true
	}
	return looseEqual(cfg[opt.Conditional.Field], opt.Conditional.Value)
}

// ValidateConfig checks a user config against the application schema.
// It reports every missing or invalid field at once, not just the
// first, and applies the per-application special rules.
func ValidateConfig(app *Application, cfg model.ConfigMap) error {
	known := make(map[string]ConfigOption, len(app.Options))
	for _, opt := range app.Options {
		known[opt.ID] = opt
	}

	// Effective view with defaults filled in, so visibility conditions
	// on unset options evaluate against their defaults.
	effective := make(model.ConfigMap, len(cfg))
	for _, opt := range app.Options {
		if opt.Default != nil {
			effective[opt.ID] = opt.Default
		}
	}
	for k, v := range cfg {
		effective[k] = v
	}

	var problems []string

	for key := range cfg {
		if _, ok := known[key]; !ok {
			problems = append(problems, fmt.Sprintf("unknown field %q", key))
		}
	}

	for _, opt := range app.Options {
		if !Visible(opt, effective) {
			continue
		}
		value, present := cfg[opt.ID]
		if !present {
			if opt.Required && opt.Default == nil && !skipRequired(app, opt, effective) {
				problems = append(problems, fmt.Sprintf("missing required field %q", opt.ID))
			}
			continue
		}
		if msg := checkType(opt, value); msg != "" {
			problems = append(problems, msg)
		}
	}

	problems = append(problems, appRules(app, effective)...)

	if len(problems) > 0 {
		sort.Strings(problems)
		return apperror.New(apperror.CodeValidation, strings.Join(problems, "; "))
	}
	return nil
}

// skipRequired suppresses the required check where an app rule makes
// the field irrelevant: Airflow ignores version under a custom image.
func skipRequired(app *Application, opt ConfigOption, effective model.ConfigMap) bool {
	if app.ID == AppAirflow && opt.ID == "version" {
		return effective.Bool("custom_image")
	}
	return false
}

func checkType(opt ConfigOption, value any) string {
	switch opt.Type {
	case OptionText:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("field %q must be a string", opt.ID)
		}
	case OptionBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("field %q must be a boolean", opt.ID)
		}
	case OptionNumber:
		switch value.(type) {
		case int, int64, float64:
		default:
			return fmt.Sprintf("field %q must be a number", opt.ID)
		}
	case OptionSelect:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("field %q must be a string", opt.ID)
		}
		if len(opt.Options) > 0 && !contains(opt.Options, s) {
			return fmt.Sprintf("field %q must be one of %s", opt.ID, strings.Join(opt.Options, ", "))
		}
	}
	return ""
}

// appRules applies per-application constraints beyond the schema.
func appRules(app *Application, effective model.ConfigMap) []string {
	var problems []string

	switch app.ID {
	case AppAirflow:
		if repo := effective.String("dags_repository"); repo != "" {
			if !strings.HasPrefix(repo, "http://") && !strings.HasPrefix(repo, "https://") &&
				!strings.HasPrefix(repo, "git@") {
				problems = append(problems,
					`field "dags_repository" must start with http://, https:// or git@`)
			}
		}
	case AppSpark:
		minWorkers, okMin := effective.Int("min_workers")
		maxWorkers, okMax := effective.Int("max_workers")
		if okMin && minWorkers < 1 {
			problems = append(problems, `field "min_workers" must be at least 1`)
		}
		if okMin && okMax && minWorkers > maxWorkers {
			problems = append(problems, `field "min_workers" must not exceed "max_workers"`)
		}
	}
	return problems
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
