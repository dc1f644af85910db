package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/courier/internal/core/broker"
	"github.com/hay-kot/courier/internal/server"
	"github.com/hay-kot/courier/internal/store/jsonfile"
)

type ServeCmd struct {
	flags *Flags
	addr  string
}

// NewServeCmd creates a new serve command.
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the broker HTTP server",
		UsageText: "courier serve [--addr :3000]",
		Description: `Starts the broker. Point-to-point messages are sent with POST /send and
received with GET /receive. Topic messages are published with POST /publish
and streamed to every subscriber of GET /subscribe/:topic.

The listen address comes from --addr, then COURIER_ADDR, then PORT (as ":PORT"),
then server.addr in the config file.

The server stops on SIGINT or SIGTERM. Open streams are closed first, then
in-flight requests get server.shutdown_timeout to finish.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address, overrides server.addr",
				Sources:     cli.EnvVars("COURIER_ADDR"),
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	if addr := listenAddr(cmd.addr, os.Getenv("PORT")); addr != "" {
		cfg.Server.Addr = addr
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid --addr: %w", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)

	var (
		recorder broker.ActivityRecorder
		reader   broker.ActivityReader
	)
	if cfg.Activity.Enabled {
		store := jsonfile.NewActivityStore(cfg.ActivityDir()).WithMaxActivities(cfg.Activity.MaxEntries)
		recorder, reader = store, store
		log.Info().Str("dir", cfg.ActivityDir()).Int("max_entries", cfg.Activity.MaxEntries).Msg("activity log enabled")
	}

	b := broker.New(cfg.BrokerOptions(), log.With().Str("component", "broker").Logger(), recorder)
	srv := server.New(cfg.Server, b, reader, log.With().Str("component", "server").Logger())

	ctx, stop := notifyContext(ctx)
	defer stop()

	return srv.Run(ctx)
}

// listenAddr returns the address override, if any. A bare port is listened
// on across all interfaces.
func listenAddr(addr, port string) string {
	if addr != "" {
		return addr
	}
	if port != "" {
		return ":" + port
	}
	return ""
}
