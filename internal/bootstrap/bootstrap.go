package bootstrap

import (
	"context"
	"fmt"

	"auction-house/internal/config"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// OpenStore returns the configured store, migrated and ready, plus a function releasing it
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (repository.AuctionDB, func(), error) {
	switch cfg.Driver {
	case "memory":
		utils.Info("using in-memory store", nil)
		return repository.NewMemoryRepo(), func() {}, nil

	case "postgres":
		repo, err := repository.NewPostgresRepo(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		utils.Info("using postgres store", map[string]any{"max_conns": cfg.MaxConns})
		return repo, repo.Close, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown database driver %q", cfg.Driver)
	}
}

// NewMailer builds the configured notification driver plus a function releasing it
func NewMailer(cfg config.MailConfig) (notify.Mailer, func(), error) {
	switch cfg.Driver {
	case "log":
		return notify.LogMailer{From: cfg.From}, func() {}, nil

	case "smtp":
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			Username:      cfg.SMTP.Username,
			Password:      cfg.SMTP.Password,
			From:          cfg.From,
			RatePerSecond: cfg.RatePerSecond,
		}), func() {}, nil

	case "amqp":
		m, err := notify.NewAMQPMailer(notify.AMQPConfig{
			URL:        cfg.AMQP.URL,
			Exchange:   cfg.AMQP.Exchange,
			RoutingKey: cfg.AMQP.RoutingKey,
			From:       cfg.From,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		return m, func() {
			if err := m.Close(); err != nil {
				utils.Warn("closing mail exchange connection failed", map[string]any{"error": err.Error()})
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown mail driver %q", cfg.Driver)
	}
}
