package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/courier/internal/client"
	"github.com/hay-kot/courier/internal/core/broker"
	"github.com/hay-kot/courier/internal/core/validate"
	"github.com/hay-kot/courier/internal/printer"
	"github.com/hay-kot/courier/internal/tui"
)

type MsgCmd struct {
	flags *Flags
	stdin io.Reader

	// receive flags
	receiveJSON bool

	// pub flags
	pubTopic string
	pubFile  string

	// sub flags
	subCount int

	// topics flags
	topicsMatch string
	topicsJSON  bool

	// activity flags
	activityLimit int
	activityJSON  bool
}

// NewMsgCmd creates a new msg command.
func NewMsgCmd(flags *Flags) *MsgCmd {
	return &MsgCmd{flags: flags, stdin: os.Stdin}
}

// Register adds the msg command to the application.
func (cmd *MsgCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "msg",
		Usage: "Send, receive, publish and subscribe through a running broker",
		Description: `Client commands for a courier server (see --url).

send and receive use the point-to-point queue: each message is received by
exactly one caller, oldest first.

pub and sub use topics: every subscriber connected at publish time gets a
copy. Messages published before a subscriber connects are not replayed.`,
		Commands: []*cli.Command{
			cmd.sendCmd(),
			cmd.receiveCmd(),
			cmd.pubCmd(),
			cmd.subCmd(),
			cmd.topicsCmd(),
			cmd.activityCmd(),
		},
	})

	return app
}

func (cmd *MsgCmd) sendCmd() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Queue a point-to-point message",
		UsageText: "courier msg send <message>",
		Description: `Appends a message to the queue. Reads stdin when no argument is given.

Examples:
  courier msg send "job 42 ready"
  echo "job 42 ready" | courier msg send`,
		Action: cmd.runSend,
	}
}

func (cmd *MsgCmd) receiveCmd() *cli.Command {
	return &cli.Command{
		Name:      "receive",
		Usage:     "Take the oldest queued message",
		UsageText: "courier msg receive [--json]",
		Description: `Removes the oldest message from the queue and prints its body.
Exits with status 2 when the queue is empty.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the message as JSON",
				Destination: &cmd.receiveJSON,
			},
		},
		Action: cmd.runReceive,
	}
}

func (cmd *MsgCmd) pubCmd() *cli.Command {
	return &cli.Command{
		Name:      "pub",
		Usage:     "Publish a message to a topic",
		UsageText: "courier msg pub [--topic <topic>] [message]",
		Description: `Publishes a message to every current subscriber of the topic.

The message can be provided as:
- A command-line argument
- From a file with -f/--file
- From stdin if no argument is provided

On a terminal with no message given, an interactive form is shown.

Examples:
  courier msg pub --topic orders "order 42 created"
  echo "hello" | courier msg pub
  courier msg pub --topic logs -f build.log`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "topic",
				Aliases:     []string{"t"},
				Usage:       "topic to publish to",
				Value:       broker.DefaultTopic,
				Destination: &cmd.pubTopic,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "read message from file",
				Destination: &cmd.pubFile,
			},
		},
		Action: cmd.runPub,
	}
}

func (cmd *MsgCmd) subCmd() *cli.Command {
	return &cli.Command{
		Name:      "sub",
		Usage:     "Stream messages published to a topic",
		UsageText: "courier msg sub [topic] [--count N]",
		Description: `Subscribes to a topic and prints each message as a JSON line until
interrupted, or until --count messages have arrived.

Examples:
  courier msg sub orders
  courier msg sub orders --count 1    # wait for a single message`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"n"},
				Usage:       "exit after N messages (0 streams forever)",
				Destination: &cmd.subCount,
			},
		},
		Action: cmd.runSub,
	}
}

func (cmd *MsgCmd) topicsCmd() *cli.Command {
	return &cli.Command{
		Name:      "topics",
		Usage:     "List topics and subscriber counts",
		UsageText: "courier msg topics [--match <glob>] [--json]",
		Description: `Lists every known topic with its live subscriber count.

Examples:
  courier msg topics
  courier msg topics --match "orders.*"
  courier msg topics --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "only list topics matching a glob pattern",
				Destination: &cmd.topicsMatch,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print topics as JSON lines",
				Destination: &cmd.topicsJSON,
			},
		},
		Action: cmd.runTopics,
	}
}

func (cmd *MsgCmd) activityCmd() *cli.Command {
	return &cli.Command{
		Name:      "activity",
		Usage:     "Show recent broker activity",
		UsageText: "courier msg activity [--limit N] [--json]",
		Description: `Lists recent broker events, newest first. The server must run with
activity.enabled set in its config.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum number of events",
				Value:       20,
				Destination: &cmd.activityLimit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print events as JSON lines",
				Destination: &cmd.activityJSON,
			},
		},
		Action: cmd.runActivity,
	}
}

func (cmd *MsgCmd) runSend(ctx context.Context, c *cli.Command) error {
	message, err := readMessage(c, "", cmd.stdin)
	if err != nil {
		return err
	}

	if err := cmd.flags.Client().Send(ctx, message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	printer.Ctx(ctx).Successf("queued")
	return nil
}

func (cmd *MsgCmd) runReceive(ctx context.Context, c *cli.Command) error {
	msg, ok, err := cmd.flags.Client().Receive(ctx)
	if err != nil {
		return fmt.Errorf("receive message: %w", err)
	}
	if !ok {
		printer.Ctx(ctx).Infof("queue is empty")
		return cli.Exit("", 2)
	}

	w := c.Root().Writer
	if cmd.receiveJSON {
		return json.NewEncoder(w).Encode(msg)
	}
	_, err = fmt.Fprintln(w, msg.Body)
	return err
}

func (cmd *MsgCmd) runPub(ctx context.Context, c *cli.Command) error {
	topic := cmd.pubTopic

	var message string
	if c.NArg() == 0 && cmd.pubFile == "" && isTerminal(os.Stdin) {
		form := tui.NewPublishForm(topic)
		if err := form.Run(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("publish form: %w", err)
		}
		result := form.Result()
		topic, message = result.Topic, result.Message
	} else {
		var err error
		message, err = readMessage(c, cmd.pubFile, cmd.stdin)
		if err != nil {
			return err
		}
	}

	if err := validate.TopicName(topic); err != nil {
		return fmt.Errorf("invalid topic: %w", err)
	}

	used, err := cmd.flags.Client().Publish(ctx, topic, message)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	printer.Ctx(ctx).Successf("published to %s", used)
	return nil
}

func (cmd *MsgCmd) runSub(ctx context.Context, c *cli.Command) error {
	topic := c.Args().First()
	if topic == "" {
		topic = broker.DefaultTopic
	}

	ctx, cancel := notifyContext(ctx)
	defer cancel()

	var (
		enc      = json.NewEncoder(c.Root().Writer)
		received int
	)

	err := cmd.flags.Client().Subscribe(ctx, topic, func(msg broker.Message) error {
		if err := enc.Encode(msg); err != nil {
			return err
		}
		received++
		if cmd.subCount > 0 && received >= cmd.subCount {
			return client.ErrStop
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}

func (cmd *MsgCmd) runTopics(ctx context.Context, c *cli.Command) error {
	topics, err := cmd.flags.Client().Topics(ctx, cmd.topicsMatch)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}

	if cmd.topicsJSON {
		enc := json.NewEncoder(c.Root().Writer)
		for _, t := range topics {
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
		return nil
	}

	if len(topics) == 0 {
		printer.Ctx(ctx).Infof("no topics")
		return nil
	}

	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{t.Name, strconv.Itoa(t.SubscriberCount)})
	}
	printer.New(c.Root().Writer).Table([]string{"TOPIC", "SUBSCRIBERS"}, rows)
	return nil
}

// readMessage takes the message from the first argument, then file, then
// stdin. A single trailing newline from a file or stdin is dropped.
func readMessage(c *cli.Command, file string, stdin io.Reader) (string, error) {
	var message string
	switch {
	case c.NArg() >= 1:
		message = strings.Join(c.Args().Slice(), " ")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		message = trimNewline(string(data))
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		message = trimNewline(string(data))
	}

	if err := validate.MessageBody(message); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}
	return message, nil
}

func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func (cmd *MsgCmd) runActivity(ctx context.Context, c *cli.Command) error {
	activities, err := cmd.flags.Client().Activity(ctx, cmd.activityLimit)
	if err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			return errors.New("activity log is disabled on the server")
		}
		return fmt.Errorf("list activity: %w", err)
	}

	if cmd.activityJSON {
		enc := json.NewEncoder(c.Root().Writer)
		for _, a := range activities {
			if err := enc.Encode(a); err != nil {
				return err
			}
		}
		return nil
	}

	if len(activities) == 0 {
		printer.Ctx(ctx).Infof("no activity")
		return nil
	}

	rows := make([][]string, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, []string{
			a.Timestamp.Local().Format(time.DateTime),
			string(a.Type),
			a.Topic,
			activityDetail(a),
		})
	}
	printer.New(c.Root().Writer).Table([]string{"TIME", "TYPE", "TOPIC", "DETAIL"}, rows)
	return nil
}

func activityDetail(a broker.Activity) string {
	switch a.Type {
	case broker.ActivityPublish:
		return fmt.Sprintf("%s to %d subscriber(s)", a.MessageID, a.Recipients)
	case broker.ActivitySubscribe:
		return fmt.Sprintf("subscription %d", a.SubscriptionID)
	case broker.ActivityUnsubscribe:
		if a.Reason != "" {
			return fmt.Sprintf("subscription %d (%s)", a.SubscriptionID, a.Reason)
		}
		return fmt.Sprintf("subscription %d", a.SubscriptionID)
	default:
		return a.MessageID
	}
}
