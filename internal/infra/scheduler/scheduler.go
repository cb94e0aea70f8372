package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loan_interest_accrual/internal/app"
	"loan_interest_accrual/internal/infra/auth"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var ErrAlreadyRunning = errors.New("an accrual batch is already running")
var ErrAuthentication = errors.New("failed to acquire service token")

// BatchRunner runs one accrual batch over all eligible loans.
type BatchRunner interface {
	RunBatch(ctx context.Context) (*app.BatchResult, error)
}

// TokenProvider issues the bearer token required before a batch may start.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Options configures when the daily run happens.
type Options struct {
	RunHour       int
	RunMinute     int
	Location      *time.Location
	HeartbeatSpec string // e.g. "@every 1h"
	Clock         func() time.Time
}

// AccrualScheduler runs the interest accrual batch once per day at a fixed local time.
// A cron heartbeat wakes it up periodically; each wake compares the clock with the
// next execution time and starts a batch when it is due.
type AccrualScheduler struct {
	cronEngine    *cron.Cron
	runner        BatchRunner
	auth          TokenProvider
	state         *State
	logger        *logrus.Entry
	clock         func() time.Time
	runHour       int
	runMinute     int
	location      *time.Location
	heartbeatSpec string

	wg sync.WaitGroup
}

func NewAccrualScheduler(runner BatchRunner, tokens TokenProvider, logger *logrus.Entry, opts Options) *AccrualScheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.HeartbeatSpec == "" {
		opts.HeartbeatSpec = "@every 1h"
	}
	cronLogger := cron.PrintfLogger(logger)
	return &AccrualScheduler{
		cronEngine: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)),
		),
		runner:        runner,
		auth:          tokens,
		state:         &State{},
		logger:        logger,
		clock:         opts.Clock,
		runHour:       opts.RunHour,
		runMinute:     opts.RunMinute,
		location:      opts.Location,
		heartbeatSpec: opts.HeartbeatSpec,
	}
}

// Start sets today's run time, registers the heartbeat and performs the startup
// catch-up check. ctx governs the whole scheduler lifetime; cancel it and call Stop to shut down.
func (s *AccrualScheduler) Start(ctx context.Context) error {
	s.state.setNextExecutionTime(s.runTimeOn(s.clock()))
	s.logger.WithField("next_execution_time", s.state.NextExecutionTime()).Info("Starting interest accrual scheduler")

	_, err := s.cronEngine.AddFunc(s.heartbeatSpec, func() {
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("could not add accrual heartbeat job %q: %w", s.heartbeatSpec, err)
	}
	s.cronEngine.Start()

	// Catch up immediately if the process started after today's run time.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Tick(ctx)
	}()

	s.logger.WithField("heartbeat", s.heartbeatSpec).Info("Interest accrual scheduler started")
	return nil
}

// Stop halts the heartbeat and waits for an in-flight batch to return.
func (s *AccrualScheduler) Stop() {
	s.logger.Info("Stopping interest accrual scheduler...")
	stopCtx := s.cronEngine.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
	s.logger.Info("Interest accrual scheduler gracefully stopped.")
}

// Tick is one heartbeat: it runs the batch if the next execution time has been reached.
// It reports whether a batch ran to completion.
func (s *AccrualScheduler) Tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	now := s.clock()
	next := s.state.NextExecutionTime()
	if now.Before(next) {
		s.logger.WithField("next_execution_time", next).Debug("Heartbeat: accrual not due yet")
		return false
	}
	return s.execute(ctx) == nil
}

// RunNow starts a batch immediately, subject to the same guard and authentication.
func (s *AccrualScheduler) RunNow(ctx context.Context) error {
	return s.execute(ctx)
}

// Status returns the current scheduler state.
func (s *AccrualScheduler) Status() Status {
	return s.state.Snapshot()
}

func (s *AccrualScheduler) execute(ctx context.Context) error {
	if !s.state.TryAcquire() {
		s.logger.Warn("Accrual batch already running, skipping this trigger")
		return ErrAlreadyRunning
	}
	defer s.state.Release()

	startedAt := s.clock()
	log := s.logger.WithField("started_at", startedAt)

	token, err := s.auth.Token(ctx)
	if err != nil {
		log.WithError(err).Error("Could not authenticate accrual batch, nothing processed")
		s.state.recordFailure(startedAt, fmt.Sprintf("authentication failed: %v", err), nil)
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	result, err := s.runner.RunBatch(auth.WithToken(ctx, token))
	if err != nil {
		log.WithError(err).Error("Interest accrual batch failed")
		s.state.recordFailure(s.clock(), err.Error(), nil)
		return err
	}
	if result.Cancelled {
		log.Warn("Interest accrual batch interrupted by shutdown")
		s.state.recordFailure(s.clock(), "batch cancelled before all loans were processed", result)
		return context.Canceled
	}

	next := s.runTimeOn(startedAt.AddDate(0, 0, 1))
	s.state.recordSuccess(s.clock(), next, result)
	log.WithFields(logrus.Fields{
		"accrued":             result.Accrued,
		"failed":              result.Failed,
		"next_execution_time": next,
	}).Info("Interest accrual batch finished")
	return nil
}

// runTimeOn returns the configured run time on t's calendar day.
func (s *AccrualScheduler) runTimeOn(t time.Time) time.Time {
	local := t.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), s.runHour, s.runMinute, 0, 0, s.location)
}
