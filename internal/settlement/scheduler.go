package settlement

import (
	"context"
	"fmt"

	"auction-house/utils"

	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own logging through the application logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	utils.Debug("cron: "+msg, fields(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	f := fields(keysAndValues)
	f["error"] = err.Error()
	utils.Error("cron: "+msg, f)
}

func fields(keysAndValues []interface{}) map[string]any {
	f := make(map[string]any, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

// Scheduler runs the sweep on a cron schedule. A tick that arrives while the previous
// sweep is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler parses spec (standard five-field cron or descriptors such as "@every 5m")
func NewScheduler(sweeper *Sweeper, spec string) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, sweeper: sweeper, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("settlement: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if _, err := s.sweeper.Run(s.ctx); err != nil {
		utils.Error("settlement sweep failed", map[string]any{"error": err.Error()})
	}
}

// Start begins running sweeps in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	utils.Info("settlement scheduler started", map[string]any{"entries": len(s.cron.Entries())})
}

// Stop prevents new sweeps and waits for a running one to finish or for ctx to expire,
// whichever comes first. An interrupted sweep stops between items.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancel()

	select {
	case <-done.Done():
		utils.Info("settlement scheduler stopped", nil)
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("settlement: waiting for running sweep: %w", ctx.Err())
	}
}
