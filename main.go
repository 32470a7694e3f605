package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-house/internal/bootstrap"
	bidding "auction-house/internal/biddingService"
	catalog "auction-house/internal/catalogService"
	"auction-house/internal/config"
	question "auction-house/internal/questionService"
	"auction-house/internal/realtime"
	"auction-house/internal/server"
	"auction-house/internal/settlement"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(configDir())
	if err != nil {
		utils.Fatal("failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

// run serves until ctx is cancelled or the listener fails and returns the process exit code.
// Resources it opens are released before it returns.
func run(ctx context.Context, cfg *config.Config) int {
	repo, closeStore, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		utils.Error("failed to open store", map[string]any{"error": err.Error()})
		return 1
	}
	defer closeStore()

	if cfg.Seed.DemoData {
		if err := bootstrap.Seed(ctx, repo, time.Now); err != nil {
			utils.Error("failed to seed demo data", map[string]any{"error": err.Error()})
			return 1
		}
	}

	mailer, closeMailer, err := bootstrap.NewMailer(cfg.Mail)
	if err != nil {
		utils.Error("failed to create mailer", map[string]any{"error": err.Error()})
		return 1
	}
	defer closeMailer()

	hub := realtime.NewHub()
	defer hub.Close()

	router := server.SetupRouter(server.Dependencies{
		Bidding:   bidding.NewBiddingService(repo, bidding.WithPublisher(hub)),
		Catalog:   catalog.NewCatalogService(repo, time.Now),
		Questions: question.NewQuestionService(repo, time.Now),
		Store:     repo,
		Hub:       hub,
	})

	var scheduler *settlement.Scheduler
	if cfg.Settlement.Enabled {
		sweeper := settlement.NewSweeper(repo, mailer,
			settlement.WithPublisher(hub),
			settlement.WithCurrencySymbol(cfg.Mail.CurrencySymbol),
			settlement.WithSendTimeout(cfg.Settlement.SendTimeout),
		)
		scheduler, err = settlement.NewScheduler(sweeper, cfg.Settlement.Schedule)
		if err != nil {
			utils.Error("failed to create settlement scheduler", map[string]any{"error": err.Error()})
			return 1
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	code := 0
	serveErr := make(chan error, 1)
	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			utils.Error("server failed", map[string]any{"error": err.Error()})
			code = 1
		}
	case <-ctx.Done():
		utils.Info("shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			utils.Warn("settlement scheduler did not stop cleanly", map[string]any{"error": err.Error()})
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("server shutdown failed", map[string]any{"error": err.Error()})
		code = 1
	}
	utils.Info("auction server stopped", nil)
	return code
}

// configDir returns the directory holding config.yaml and .env, "./configs" by default
func configDir() string {
	if dir := os.Getenv("AUCTION_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "./configs"
}
