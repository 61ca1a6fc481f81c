package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/guestbook/internal/classifier"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
	"github.com/hay-kot/guestbook/internal/printer"
)

type CheckCmd struct {
	flags *Flags
}

// NewCheckCmd creates a new check command.
func NewCheckCmd(flags *Flags) *CheckCmd {
	return &CheckCmd{flags: flags}
}

// Register adds the check command to the application.
func (cmd *CheckCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "check",
		Usage:     "Classify a message without posting it",
		UsageText: "guestbook check [message]",
		Description: `Runs the configured classifier on a message and prints the result for
every label, followed by the verdict the server would reach.

Examples:
  guestbook check "you are an idiot"
  echo "hello there" | guestbook check`,
		Action: cmd.run,
	})

	return app
}

func (cmd *CheckCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	text := strings.Join(c.Args().Slice(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	if text == "" {
		return fmt.Errorf("nothing to check")
	}

	handle, err := classifier.NewHandle(cmd.flags.Config.Classifier, log.Logger)
	if err != nil {
		return err
	}
	model, err := handle.Load(ctx)
	if err != nil {
		return err
	}

	predictions, err := model.Classify(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	printPredictions(c.Root().Writer, predictions)

	p.Printf("")
	if toxicity.Verdict(predictions) {
		p.Errorf("toxic: this message would be blocked and removed")
		return cli.Exit("", 1)
	}
	p.Successf("not toxic")
	return nil
}

func printPredictions(w io.Writer, predictions []toxicity.Prediction) {
	table := printer.NewTable(w, "Label", "Match", "Probability")
	for _, pred := range predictions {
		if len(pred.Results) == 0 {
			continue
		}
		r := pred.Results[0]
		table.Append([]string{
			pred.Label,
			matchString(r.Match),
			fmt.Sprintf("%.3f", r.Probabilities[1]),
		})
	}
	table.Render()
}

func matchString(m *bool) string {
	if m == nil {
		return "null"
	}
	return lo.Ternary(*m, printer.StatusFailed("true"), "false")
}
