package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gitlab.com/nevasik7/alerting/logger"
)

var ErrInvalidTask = errors.New("invalid task")

// Locker is the cross-process admission lock, the cache plane in production
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool)
	ReleaseLock(key, token string)
}

type Task struct {
	Name    string
	Period  time.Duration // zero for startup-only tasks
	Startup bool          // also run once as soon as the scheduler starts
	Fn      func(ctx context.Context) error
}

type Options struct {
	LockTTL     time.Duration
	Periods     map[string]time.Duration // per task override
	StopTimeout time.Duration
}

type Scheduler struct {
	log   logger.Logger
	cron  gocron.Scheduler
	locks Locker
	opts  Options

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	names  map[string]struct{}
}

func New(log logger.Logger, locks Locker, opts Options) (*Scheduler, error) {
	if locks == nil {
		return nil, errors.New("scheduler locker is required")
	}

	// sane defaults
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 30 * time.Second
	}

	s := &Scheduler{
		log:   log,
		locks: locks,
		opts:  opts,
		names: make(map[string]struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	cron, err := gocron.NewScheduler(
		gocron.WithStopTimeout(opts.StopTimeout),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Errorf("Task %s panicked, job=%s, recover=%v", jobName, jobID, recoverData)
					metrics.TaskRuns.WithLabelValues(jobName, "error").Inc()
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed create scheduler, error=%w", err)
	}
	s.cron = cron

	return s, nil
}

// Register adds t; periodic tasks never overlap themselves, a tick that would is skipped
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" || t.Fn == nil {
		return fmt.Errorf("%w: name and fn are required", ErrInvalidTask)
	}
	if p, ok := s.opts.Periods[t.Name]; ok && p > 0 {
		t.Period = p
	}
	if t.Period <= 0 && !t.Startup {
		return fmt.Errorf("%w: %s has neither period nor startup", ErrInvalidTask, t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.names[t.Name]; dup {
		return fmt.Errorf("%w: duplicate name %s", ErrInvalidTask, t.Name)
	}

	var (
		def  gocron.JobDefinition
		opts = []gocron.JobOption{gocron.WithName(t.Name)}
	)
	if t.Period > 0 {
		def = gocron.DurationJob(t.Period)
		if t.Startup {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}
	} else {
		def = gocron.OneTimeJob(gocron.OneTimeJobStartImmediately())
	}

	if _, err := s.cron.NewJob(def, gocron.NewTask(s.run, t), opts...); err != nil {
		return fmt.Errorf("failed schedule task %s, error=%w", t.Name, err)
	}
	s.names[t.Name] = struct{}{}

	s.log.Debugf("Task %s registered, period=%s, startup=%t", t.Name, t.Period, t.Startup)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infof("Scheduler started with %d tasks", len(s.cron.Jobs()))
}

// Shutdown cancels running tasks and waits for them up to StopTimeout
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed shutdown scheduler, error=%w", err)
	}
	s.log.Info("Scheduler stopped")
	return nil
}

// run executes one tick under the task_<name> admission lock
func (s *Scheduler) run(t Task) {
	if s.ctx.Err() != nil {
		return
	}

	key := cache.TaskLockKey(t.Name)
	token, ok := s.locks.AcquireLock(s.ctx, key, s.opts.LockTTL)
	if !ok {
		s.log.Warnf("Task %s skipped, lock %s is held", t.Name, key)
		metrics.TaskRuns.WithLabelValues(t.Name, "skipped").Inc()
		return
	}
	defer s.locks.ReleaseLock(key, token)

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.LockTTL)
	defer cancel()

	start := time.Now()
	err := t.Fn(ctx)
	took := time.Since(start)
	metrics.TaskDuration.WithLabelValues(t.Name).Observe(took.Seconds())

	if t.Period > 0 && took > t.Period {
		s.log.Warnf("Task %s overran its period, took=%s, period=%s", t.Name, took, t.Period)
	}

	if err != nil {
		s.log.Errorf("Task %s failed, took=%s, error=%v", t.Name, took, err)
		metrics.TaskRuns.WithLabelValues(t.Name, "error").Inc()
		return
	}

	metrics.TaskRuns.WithLabelValues(t.Name, "ok").Inc()
	s.log.Debugf("Task %s done, took=%s", t.Name, took)
}
