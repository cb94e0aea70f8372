package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"loan_interest_accrual/internal/app"
)

// Status is a point-in-time view of the scheduler for health checks.
type Status struct {
	Running           bool             `json:"running"`
	NextExecutionTime time.Time        `json:"next_execution_time,omitzero"`
	LastSuccessfulRun time.Time        `json:"last_successful_run,omitzero"`
	LastErrorMessage  string           `json:"last_error_message,omitempty"`
	LastErrorAt       time.Time        `json:"last_error_at,omitzero"`
	LastBatch         *app.BatchResult `json:"last_batch,omitempty"`
}

// Healthy is false when the most recent attempt failed and nothing succeeded since.
func (s Status) Healthy() bool {
	if s.LastErrorMessage == "" {
		return true
	}
	return s.LastSuccessfulRun.After(s.LastErrorAt)
}

// State holds the scheduler's single-flight guard and run bookkeeping.
type State struct {
	running atomic.Bool

	mu                sync.Mutex
	nextExecutionTime time.Time
	lastSuccessfulRun time.Time
	lastErrorMessage  string
	lastErrorAt       time.Time
	lastBatch         *app.BatchResult
}

// TryAcquire takes the single-flight guard without blocking.
func (s *State) TryAcquire() bool {
	return s.running.CompareAndSwap(false, true)
}

func (s *State) Release() {
	s.running.Store(false)
}

func (s *State) IsRunning() bool {
	return s.running.Load()
}

func (s *State) NextExecutionTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextExecutionTime
}

func (s *State) setNextExecutionTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExecutionTime = t
}

func (s *State) recordSuccess(at, next time.Time, batch *app.BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSuccessfulRun = at
	s.nextExecutionTime = next
	s.lastBatch = batch
}

// recordFailure keeps nextExecutionTime as is so the next heartbeat retries.
func (s *State) recordFailure(at time.Time, msg string, batch *app.BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErrorMessage = msg
	s.lastErrorAt = at
	if batch != nil {
		s.lastBatch = batch
	}
}

func (s *State) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:           s.running.Load(),
		NextExecutionTime: s.nextExecutionTime,
		LastSuccessfulRun: s.lastSuccessfulRun,
		LastErrorMessage:  s.lastErrorMessage,
		LastErrorAt:       s.lastErrorAt,
		LastBatch:         s.lastBatch,
	}
}
