package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/printer"
	"github.com/hay-kot/guestbook/internal/styles"
)

type TailCmd struct {
	flags  *Flags
	last   int
	listen bool
	json   bool
}

// NewTailCmd creates a new tail command.
func NewTailCmd(flags *Flags) *TailCmd {
	return &TailCmd{flags: flags}
}

// Register adds the tail command to the application.
func (cmd *TailCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tail",
		Usage:     "Show the newest messages",
		UsageText: "guestbook tail [--last N] [--listen] [--json]",
		Description: `Prints the newest messages from the server, oldest first.

Use --listen to keep the feed open and print every change as it happens,
including messages removed by moderation.

Examples:
  guestbook tail                 # newest messages as a table
  guestbook tail --last 50       # newest 50
  guestbook tail --listen        # follow the feed
  guestbook tail --json          # one JSON object per line`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "last",
				Aliases:     []string{"n"},
				Usage:       "number of messages (default client.tail_limit)",
				Destination: &cmd.last,
			},
			&cli.BoolFlag{
				Name:        "listen",
				Aliases:     []string{"l"},
				Usage:       "follow the feed until interrupted",
				Destination: &cmd.listen,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON lines",
				Destination: &cmd.json,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *TailCmd) run(ctx context.Context, c *cli.Command) error {
	limit := cmd.last
	if limit <= 0 {
		limit = cmd.flags.Config.Client.TailLimit
	}

	cl, err := cmd.flags.newClient()
	if err != nil {
		return err
	}

	w := c.Root().Writer
	if cmd.listen {
		stream, err := cl.Subscribe(ctx, limit)
		if err != nil {
			return err
		}
		err = guestbook.Listen(ctx, stream, eventPrinter(w, cmd.json))
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	messages, err := cl.Tail(ctx, limit)
	if err != nil {
		return err
	}
	if cmd.json {
		return printMessagesJSON(w, messages)
	}
	printMessagesTable(w, messages)
	return nil
}

func printMessagesJSON(w io.Writer, messages []guestbook.Message) error {
	enc := json.NewEncoder(w)
	for _, msg := range messages {
		if err := enc.Encode(msg); err != nil {
			return err
		}
	}
	return nil
}

func printMessagesTable(w io.Writer, messages []guestbook.Message) {
	table := printer.NewTable(w, "Time", "Name", "Message")
	for _, msg := range messages {
		table.Append([]string{
			msg.Timestamp.Local().Format(styles.TimeFormat),
			msg.Name,
			strings.ReplaceAll(msg.Text, "\n", " / "),
		})
	}
	table.Render()
}

// eventPrinter prints feed events as they arrive.
func eventPrinter(w io.Writer, asJSON bool) guestbook.Listener {
	if asJSON {
		enc := json.NewEncoder(w)
		emit := func(kind guestbook.EventKind) func(guestbook.Message) {
			return func(m guestbook.Message) {
				_ = enc.Encode(guestbook.Event{Kind: kind, Message: m})
			}
		}
		return guestbook.Listener{
			OnAdded:   emit(guestbook.EventAdded),
			OnChanged: emit(guestbook.EventChanged),
			OnRemoved: emit(guestbook.EventRemoved),
		}
	}

	return guestbook.Listener{
		OnAdded: func(m guestbook.Message) {
			_, _ = fmt.Fprintln(w, styles.RenderMessage(m))
		},
		OnChanged: func(m guestbook.Message) {
			_, _ = fmt.Fprintln(w, styles.RenderMessage(m))
		},
		OnRemoved: func(m guestbook.Message) {
			_, _ = fmt.Fprintln(w, styles.TimeStyle.Render(fmt.Sprintf("%s removed message %s", printer.Dot, m.ID)))
		},
	}
}
