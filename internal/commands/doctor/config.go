package doctor

import (
	"context"
	"strings"

	"github.com/hay-kot/courier/internal/core/config"
)

// ConfigCheck validates the configuration file.
type ConfigCheck struct {
	config     *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config loaded",
			Status: StatusFail,
			Detail: "configuration not loaded",
		})
		return result
	}

	vr := c.config.ValidateDeep(c.configPath)

	for _, check := range vr.Checks {
		result.Items = append(result.Items, CheckItem{
			Label:  check.Category,
			Status: StatusPass,
			Detail: check.Message,
		})
	}

	for _, w := range vr.Warnings {
		result.Items = append(result.Items, CheckItem{
			Label:  label(w.Category, w.Item),
			Status: StatusWarn,
			Detail: w.Message,
		})
	}

	for _, e := range vr.Errors {
		detail := e.Message
		if e.Fix != "" {
			detail += " (" + strings.TrimSuffix(e.Fix, ".") + ")"
		}
		result.Items = append(result.Items, CheckItem{
			Label:  label(e.Category, e.Item),
			Status: StatusFail,
			Detail: detail,
		})
	}

	return result
}

func label(category, item string) string {
	if item == "" {
		return category
	}
	return category + " (" + item + ")"
}
