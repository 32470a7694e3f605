package main

import (
	"context"
	"testing"
	"time"

	"auction-house/internal/config"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()

	base := func() config.Config {
		return config.Config{
			Server:   config.ServerConfig{Port: 0, Mode: "test", ShutdownTimeout: 5 * time.Second},
			Database: config.DatabaseConfig{Driver: "memory"},
			Mail:     config.MailConfig{Driver: "log", CurrencySymbol: "£"},
		}
	}

	tests := []struct {
		name   string
		modify func(cfg *config.Config)
		want   int
	}{
		{
			name:   "clean_shutdown",
			modify: func(cfg *config.Config) {},
			want:   0,
		},
		{
			name: "clean_shutdown_with_seed_and_scheduler",
			modify: func(cfg *config.Config) {
				cfg.Seed.DemoData = true
				cfg.Settlement = config.SettlementConfig{Enabled: true, Schedule: "@every 1h", SendTimeout: time.Second}
			},
			want: 0,
		},
		{
			name:   "unknown_store",
			modify: func(cfg *config.Config) { cfg.Database.Driver = "sqlite" },
			want:   1,
		},
		{
			name:   "mailer_fails_after_store_opened",
			modify: func(cfg *config.Config) { cfg.Mail.Driver = "pigeon" },
			want:   1,
		},
		{
			name: "bad_schedule",
			modify: func(cfg *config.Config) {
				cfg.Settlement = config.SettlementConfig{Enabled: true, Schedule: "every now and then"}
			},
			want: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base()
			tc.modify(&cfg)

			// an already cancelled context makes run shut down as soon as it is serving
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			require.Equal(t, tc.want, run(ctx, &cfg))
		})
	}
}
