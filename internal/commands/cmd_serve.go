package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/guestbook/internal/classifier"
	"github.com/hay-kot/guestbook/internal/moderator"
	"github.com/hay-kot/guestbook/internal/printer"
	"github.com/hay-kot/guestbook/internal/realtime"
	"github.com/hay-kot/guestbook/internal/server"
	"github.com/hay-kot/guestbook/internal/store"
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
		Usage:     "Run the guestbook server",
		UsageText: "guestbook serve [--addr :8080]",
		Description: `Runs the HTTP and websocket API backed by the configured store.

Every new message is re-checked by the moderation trigger, which removes
messages the classifier finds toxic. Disable it with moderation.enabled: false.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides server.addr)",
				Sources:     cli.EnvVars("GUESTBOOK_ADDR"),
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := cmd.flags.Config

	addr := cfg.Server.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}

	st, err := store.Open(ctx, cfg, log.With().Str("component", "store").Logger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	db := realtime.New(st, log.With().Str("component", "realtime").Logger())
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("close realtime database")
		}
	}()

	handle, err := classifier.NewHandle(cfg.Classifier, log.Logger)
	if err != nil {
		return err
	}

	if cfg.Moderation.Enabled {
		trig := moderator.New(handle, db, log.With().Str("component", "moderator").Logger())
		db.OnCreate(trig.Handle)
	} else {
		log.Warn().Msg("moderation disabled")
		handle = nil
	}

	srv := server.New(db, handle, cfg.Server.TailLimit, log.With().Str("component", "server").Logger())

	ready := make(chan net.Addr, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, addr, ready)
	})
	g.Go(func() error {
		select {
		case bound := <-ready:
			printer.Ctx(ctx).Infof("listening on %s", bound)
		case <-gctx.Done():
		}
		return nil
	})
	if handle != nil {
		g.Go(func() error {
			// Warm the model so the first trigger does not pay for the load.
			// A failure is retried by the trigger itself.
			if _, err := handle.Load(gctx); err != nil {
				log.Error().Err(err).Msg("load toxicity model")
			}
			return nil
		})
	}

	return g.Wait()
}
