// Command settle runs a single settlement sweep and exits. It is meant to be invoked by an
// external scheduler (cron, a Kubernetes CronJob) instead of the server's built-in one.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"auction-house/internal/bootstrap"
	"auction-house/internal/config"
	"auction-house/internal/settlement"
	"auction-house/utils"
)

func main() {
	dir := flag.String("config", "./configs", "directory holding config.yaml and .env")
	flag.Parse()

	cfg, err := config.Load(*dir)
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config) int {
	repo, closeStore, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		utils.Error("failed to open store", map[string]any{"error": err.Error()})
		return 1
	}
	defer closeStore()

	mailer, closeMailer, err := bootstrap.NewMailer(cfg.Mail)
	if err != nil {
		utils.Error("failed to create mailer", map[string]any{"error": err.Error()})
		return 1
	}
	defer closeMailer()

	sweeper := settlement.NewSweeper(repo, mailer,
		settlement.WithCurrencySymbol(cfg.Mail.CurrencySymbol),
		settlement.WithSendTimeout(cfg.Settlement.SendTimeout),
	)

	summary, err := sweeper.Run(ctx)
	if err != nil {
		utils.Error("settlement sweep failed", map[string]any{"error": err.Error()})
		return 1
	}
	if summary.Failed > 0 {
		return 2
	}
	return 0
}
