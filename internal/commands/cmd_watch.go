package commands

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/courier/internal/core/validate"
	"github.com/hay-kot/courier/internal/tui"
)

type WatchCmd struct {
	flags    *Flags
	match    string
	interval time.Duration
}

// NewWatchCmd creates a new watch command.
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application.
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Live view of topics and subscribers",
		UsageText: "courier watch [--match <glob>] [--interval 1s]",
		Description: `Opens an interactive monitor for a running broker.

Topics and their subscriber counts refresh every --interval. Press enter to
tail the selected topic, p to publish to it, and q to quit.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "only show topics matching a glob pattern",
				Destination: &cmd.match,
			},
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "refresh interval",
				Value:       time.Second,
				Destination: &cmd.interval,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, _ *cli.Command) error {
	if cmd.match != "" {
		if err := validate.TopicPattern(cmd.match); err != nil {
			return fmt.Errorf("invalid --match: %w", err)
		}
	}

	m := tui.New(cmd.flags.Client(), tui.Options{
		Match:        cmd.match,
		PollInterval: cmd.interval,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
