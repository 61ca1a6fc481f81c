package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/guestbook/internal/core/config"
	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/store/badgerdb"
	"github.com/hay-kot/guestbook/internal/store/jsonfile"
	"github.com/hay-kot/guestbook/internal/store/redisstore"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Store.Driver = driver
	return &cfg
}

func TestOpen_Drivers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	tests := []struct {
		driver string
		want   any
	}{
		{config.StoreJSONFile, &jsonfile.Store{}},
		{config.StoreBadger, &badgerdb.Store{}},
		{config.StoreRedis, &redisstore.Store{}},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := testConfig(t, tt.driver)
			cfg.Store.Redis.Addr = mr.Addr()

			s, err := Open(context.Background(), cfg, zerolog.Nop())
			require.NoError(t, err)
			defer s.Close() //nolint:errcheck

			assert.IsType(t, tt.want, s)

			msg, err := s.Append(context.Background(), guestbook.Draft{Name: "Ada", Text: "hello there"})
			require.NoError(t, err)

			got, err := s.Get(context.Background(), msg.ID)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), testConfig(t, "sqlite"), zerolog.Nop())
	assert.ErrorContains(t, err, "unknown store driver")
}
