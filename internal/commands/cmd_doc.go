package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/courier/internal/core/config"
)

type DocCmd struct {
	flags *Flags
	plain bool
}

func NewDocCmd(flags *Flags) *DocCmd {
	return &DocCmd{flags: flags}
}

func (cmd *DocCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "doc",
		Usage: "HTTP API and configuration reference",
		Description: `Reference documentation for courier.

Use 'courier doc api' to see the HTTP endpoints.
Use 'courier doc config' to print a config file with every default.`,
		Commands: []*cli.Command{
			cmd.apiCmd(),
			cmd.configCmd(),
		},
	})
	return app
}

func (cmd *DocCmd) apiCmd() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Show the HTTP API reference",
		Description: `Outputs the HTTP API reference as markdown. On a terminal the markdown
is rendered; use --plain to get the raw text.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "print raw markdown",
				Destination: &cmd.plain,
			},
		},
		Action: cmd.runAPI,
	}
}

func (cmd *DocCmd) runAPI(_ context.Context, c *cli.Command) error {
	w := c.Root().Writer

	if cmd.plain || w != os.Stdout || !isTerminal(os.Stdout) {
		_, err := io.WriteString(w, apiGuide)
		return err
	}

	return renderMarkdown(w, apiGuide)
}

func renderMarkdown(w io.Writer, md string) error {
	width := 100
	if cols, _, err := terminalSize(os.Stdout); err == nil && cols > 0 && cols < width {
		width = cols
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}

	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	_, err = io.WriteString(w, out)
	return err
}

func (cmd *DocCmd) configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the default configuration",
		Description: `Outputs a config file containing every key with its default value.

Example:
  courier doc config > ~/.config/courier/config.yaml`,
		Action: cmd.runConfig,
	}
}

func (cmd *DocCmd) runConfig(_ context.Context, c *cli.Command) error {
	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	defer enc.Close() //nolint:errcheck

	return enc.Encode(config.DefaultConfig())
}

const apiGuide = `# courier HTTP API

All request and response bodies are JSON unless noted. Errors use
` + "`{\"error\": \"<reason>\"}`" + `.

## Point-to-point queue

Each queued message is received by exactly one caller, oldest first.

| Method | Path | Body | Response |
|---|---|---|---|
| POST | /send | ` + "`{\"message\": \"...\"}`" + ` | 200 ` + "`{\"status\":\"sent\"}`" + ` |
| GET | /receive | | 200 ` + "`{\"message\":{\"header\":\"Mensaje\",\"body\":\"...\"}}`" + `, 204 when empty |

` + "`/send`" + ` returns 400 when ` + "`message`" + ` is missing or empty and 503 when the
queue is full.

## Topics

Every subscriber connected when a message is published gets one copy.
Messages are not stored for later subscribers.

| Method | Path | Body | Response |
|---|---|---|---|
| POST | /publish | ` + "`{\"topic\": \"...\", \"message\": \"...\"}`" + ` | 200 ` + "`{\"status\":\"published\",\"topic\":\"...\"}`" + ` |
| GET | /subscribe/:topic | | event stream |
| GET | /subscribe | | event stream on the default topic |
| GET | /topics | ` + "`?match=<glob>`" + ` | ` + "`{\"topics\":[{\"name\":\"...\",\"subscriberCount\":n}]}`" + ` |

A missing ` + "`topic`" + ` means ` + "`default`" + `. Topic names are any string up to 256 bytes;
escape them in the subscribe path (` + "`/subscribe/news%2Fsports`" + `). A ` + "`match`" + ` filter also
returns the topic whose name equals it exactly.

The stream is ` + "`text/event-stream`" + `. Each message is one frame:

` + "```" + `
data: {"id":"...","header":"Mensaje","body":"...","topic":"orders","timestamp":"..."}

` + "```" + `

Comment frames (` + "`: keepalive`" + `) are sent while idle and should be ignored.
Closing the connection unsubscribes.

## Operations

| Method | Path | Response |
|---|---|---|
| GET | /healthz | ` + "`{\"status\":\"ok\",\"queueDepth\":n,\"topics\":n}`" + ` |
| GET | /activity | recent broker activity, ` + "`?limit=N&since=<RFC3339>`" + `; 404 when disabled |

Unknown paths return 404 and known paths with the wrong method return 405.

## Examples

` + "```bash" + `
curl -X POST localhost:3000/send -H 'content-type: application/json' -d '{"message":"hi"}'
curl localhost:3000/receive
curl -N localhost:3000/subscribe/orders
curl -X POST localhost:3000/publish -H 'content-type: application/json' \
  -d '{"topic":"orders","message":"order 42 created"}'
` + "```" + `
`
