// Package task runs background maintenance for the console.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSchedulerInterval = time.Minute
	defaultSchedulerName     = "maintenance"

	logEventSchedulerStarted = "scheduler_started"
	logEventSchedulerStopped = "scheduler_stopped"
	logEventSchedulerPanic   = "scheduler_run_panic"
	logFieldScheduler        = "scheduler"
	logFieldInterval         = "interval"
	logFieldRuns             = "runs"
)

// RunnerFunc is one unit of periodic work.
type RunnerFunc func(context.Context)

// SchedulerConfig describes a periodic job.
type SchedulerConfig struct {
	Name     string
	Interval time.Duration
	Runner   RunnerFunc
	Logger   *zap.Logger
}

// Scheduler runs its job every interval and whenever Trigger is called. Runs never overlap, and a
// panicking run is logged instead of taking the process down.
type Scheduler struct {
	name     string
	interval time.Duration
	runner   RunnerFunc
	logger   *zap.Logger
	trigger  chan struct{}
	runs     atomic.Int64

	mutex   sync.Mutex
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewScheduler builds an idle Scheduler. A non-positive interval falls back to one minute.
func NewScheduler(config SchedulerConfig) *Scheduler {
	interval := config.Interval
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	name := config.Name
	if name == "" {
		name = defaultSchedulerName
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		runner:   config.Runner,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the loop. Calling it again while running does nothing.
func (scheduler *Scheduler) Start(ctx context.Context) {
	if scheduler == nil || scheduler.runner == nil {
		return
	}
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	if scheduler.stop != nil {
		return
	}
	loopCtx, stop := context.WithCancel(ctx)
	scheduler.stop = stop
	scheduler.stopped = make(chan struct{})
	scheduler.logger.Debug(logEventSchedulerStarted, zap.String(logFieldScheduler, scheduler.name), zap.Duration(logFieldInterval, scheduler.interval))
	go scheduler.loop(loopCtx, scheduler.stopped)
}

// Trigger asks for a run as soon as the loop is free. Pending triggers coalesce.
func (scheduler *Scheduler) Trigger() {
	if scheduler == nil {
		return
	}
	select {
	case scheduler.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (scheduler *Scheduler) Stop() {
	if scheduler == nil {
		return
	}
	scheduler.mutex.Lock()
	stop, stopped := scheduler.stop, scheduler.stopped
	scheduler.stop, scheduler.stopped = nil, nil
	scheduler.mutex.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-stopped
	scheduler.logger.Debug(logEventSchedulerStopped, zap.String(logFieldScheduler, scheduler.name), zap.Int64(logFieldRuns, scheduler.Runs()))
}

// Running reports whether the loop is active.
func (scheduler *Scheduler) Running() bool {
	if scheduler == nil {
		return false
	}
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	return scheduler.stop != nil
}

// Runs returns how many runs have completed since construction.
func (scheduler *Scheduler) Runs() int64 {
	if scheduler == nil {
		return 0
	}
	return scheduler.runs.Load()
}

func (scheduler *Scheduler) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(scheduler.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-scheduler.trigger:
			scheduler.run(ctx)
			ticker.Reset(scheduler.interval)
		case <-ticker.C:
			scheduler.run(ctx)
		}
	}
}

func (scheduler *Scheduler) run(ctx context.Context) {
	defer scheduler.runs.Add(1)
	defer func() {
		if recovered := recover(); recovered != nil {
			scheduler.logger.Error(logEventSchedulerPanic, zap.String(logFieldScheduler, scheduler.name), zap.Error(fmt.Errorf("%v", recovered)))
		}
	}()
	scheduler.runner(ctx)
}
