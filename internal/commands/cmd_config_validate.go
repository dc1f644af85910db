package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/courier/internal/core/config"
	"github.com/hay-kot/courier/internal/printer"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "courier config validate [options]",
				Description: "Validates the configuration file, checking the listen address, broker limits, and the data directory.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
						Validator: func(s string) error {
							if s != "text" && s != "json" {
								return fmt.Errorf("unknown format %q", s)
							}
							return nil
						},
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	result := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath)

	if cmd.format == "json" {
		if err := cmd.outputJSON(c, result); err != nil {
			return err
		}
	} else {
		cmd.outputText(printer.New(c.Root().Writer), result)
	}

	if !result.IsValid() {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputJSON(c *cli.Command, result *config.ValidationResult) error {
	out := struct {
		Valid bool `json:"valid"`
		*config.ValidationResult
	}{
		Valid:            result.IsValid(),
		ValidationResult: result,
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (cmd *ConfigValidateCmd) outputText(p *printer.Printer, result *config.ValidationResult) {
	p.Section(cmd.flags.ConfigPath)
	for _, check := range result.Checks {
		p.CheckItem(check.Category, check.Message)
		for _, d := range check.Details {
			p.Printf("      %s", d)
		}
	}

	for _, warn := range result.Warnings {
		p.WarnItem(warn.Category, joinItem(warn.Item, warn.Message))
	}

	for _, e := range result.Errors {
		p.FailItem(e.Category, joinItem(e.Item, e.Message))
		if e.Fix != "" {
			p.Printf("      fix: %s", e.Fix)
		}
	}

	p.Printf("")
	if result.IsValid() {
		if n := len(result.Warnings); n > 0 {
			p.Successf("Configuration is valid (%d warning(s))", n)
		} else {
			p.Successf("Configuration is valid")
		}
		return
	}

	p.Errorf("%d error(s), %d warning(s)", result.ErrorCount(), len(result.Warnings))
}

func joinItem(item, msg string) string {
	if item == "" {
		return msg
	}
	return strings.Join([]string{item, msg}, ": ")
}
