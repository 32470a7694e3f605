package main

import (
	"context"
	"testing"

	"auction-house/internal/config"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{
			name: "empty_store",
			cfg:  config.Config{Database: config.DatabaseConfig{Driver: "memory"}, Mail: config.MailConfig{Driver: "log"}},
			want: 0,
		},
		{
			name: "bad_store",
			cfg:  config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}, Mail: config.MailConfig{Driver: "log"}},
			want: 1,
		},
		{
			name: "bad_mailer",
			cfg:  config.Config{Database: config.DatabaseConfig{Driver: "memory"}, Mail: config.MailConfig{Driver: "pigeon"}},
			want: 1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, run(context.Background(), &tc.cfg))
		})
	}
}
