package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/guestbook/internal/classifier"
	"github.com/hay-kot/guestbook/internal/composer"
	"github.com/hay-kot/guestbook/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	last  int
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{
		flags: flags,
	}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "last",
			Usage:       "number of messages to show (default client.tail_limit)",
			Destination: &cmd.last,
		},
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config

	cl, err := cmd.flags.newClient()
	if err != nil {
		return err
	}

	handle, err := classifier.NewHandle(cfg.Classifier, log.Logger)
	if err != nil {
		return err
	}

	limit := cfg.Client.TailLimit
	if cmd.last > 0 {
		limit = cmd.last
	}

	logger := log.With().Str("component", "composer").Logger()
	m := tui.New(ctx, tui.Options{
		Composer:  composer.New(cl, handle, cfg.Client.NoticeDuration, logger),
		Feed:      cl,
		Handle:    handle,
		TailLimit: limit,
		Log:       logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
