package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/guestbook/internal/classifier"
	"github.com/hay-kot/guestbook/internal/composer"
	"github.com/hay-kot/guestbook/internal/printer"
)

type PostCmd struct {
	flags *Flags
	name  string
}

// NewPostCmd creates a new post command.
func NewPostCmd(flags *Flags) *PostCmd {
	return &PostCmd{flags: flags}
}

// Register adds the post command to the application.
func (cmd *PostCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "post",
		Usage:     "Post a message to the guestbook",
		UsageText: "guestbook post [--name NAME] [message]",
		Description: `Posts a single message through the running server.

The message is checked locally before it is sent. Messages that look toxic
are not posted.

The message can be provided as:
- A command-line argument
- From stdin if no argument is provided

When stdin is a terminal, missing fields are asked for interactively.

Examples:
  guestbook post --name Ada "Hello there"
  echo "Hello" | guestbook post --name Ada`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "author name",
				Sources:     cli.EnvVars("GUESTBOOK_NAME"),
				Destination: &cmd.name,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *PostCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	name, text, err := cmd.resolveInput(c)
	if err != nil {
		return err
	}

	cl, err := cmd.flags.newClient()
	if err != nil {
		return err
	}

	handle, err := classifier.NewHandle(cmd.flags.Config.Classifier, log.Logger)
	if err != nil {
		return err
	}
	// A one-shot post waits for the model; a load failure leaves the
	// advisory check failing open.
	if _, err := handle.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("advisory check unavailable")
	}

	comp := composer.New(cl, handle, cmd.flags.Config.Client.NoticeDuration, log.With().Str("component", "composer").Logger())
	res := comp.Submit(ctx, name, text)

	switch res.Outcome {
	case composer.OutcomeSent:
		p.Successf("Posted as %s", res.Message.Name)
		return nil
	case composer.OutcomeBlocked:
		p.Notice("Not posted", res.Notice.Text)
		return cli.Exit("", 1)
	case composer.OutcomeIgnored:
		return fmt.Errorf("both a name and a message are required")
	default:
		return cli.Exit("", 1)
	}
}

func (cmd *PostCmd) resolveInput(c *cli.Command) (string, string, error) {
	name := cmd.name
	text := strings.Join(c.Args().Slice(), " ")

	if name != "" && text != "" {
		return name, text, nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return promptDraft(name, text)
	}

	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	return name, text, nil
}

func promptDraft(name, text string) (string, string, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&name),
			huh.NewText().
				Title("Message").
				CharLimit(0). // unlimited
				Value(&text),
		),
	)

	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("prompt: %w", err)
	}
	return name, text, nil
}
