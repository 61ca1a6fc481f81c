// Package store opens the message store selected by configuration.
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/core/config"
	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/store/badgerdb"
	"github.com/hay-kot/guestbook/internal/store/jsonfile"
	"github.com/hay-kot/guestbook/internal/store/redisstore"
)

// Open returns the store for cfg.Store.Driver, creating the data directory
// for file-backed drivers.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (guestbook.Store, error) {
	log = log.With().Str("driver", cfg.Store.Driver).Logger()

	switch cfg.Store.Driver {
	case config.StoreJSONFile:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		log.Debug().Str("path", cfg.MessagesFile()).Msg("opening store")
		return jsonfile.New(cfg.MessagesFile()), nil

	case config.StoreBadger:
		if err := os.MkdirAll(cfg.BadgerDir(), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		log.Debug().Str("path", cfg.BadgerDir()).Msg("opening store")
		return badgerdb.Open(cfg.BadgerDir(), log)

	case config.StoreRedis:
		r := cfg.Store.Redis
		log.Debug().Str("addr", r.Addr).Int("db", r.DB).Msg("opening store")
		return redisstore.Dial(ctx, r.Addr, r.DB, r.KeyPrefix)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
