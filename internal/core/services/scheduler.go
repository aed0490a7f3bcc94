package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// historyRetention is the number of poll results kept per task.
	historyRetention = 100

	minCheckInterval = 100 * time.Millisecond
)

// job is the work behind a task.
type job struct {
	name string
	run  func(ctx context.Context) (domain.IngestReport, error)
}

// Scheduler runs the staging poller on its interval and whenever Trigger is
// called. Task state and poll history live in the SchedulerStore. A failed
// run is recorded and the task runs again at its next interval.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	jobs   map[string]job

	// flight keeps runs of one task from overlapping.
	flight singleflight.Group
	wg     sync.WaitGroup
	wakeCh chan struct{}

	mu      sync.Mutex
	stopCh  chan struct{} // nil when not started
	pending map[string]bool
}

func NewScheduler(config domain.SchedulerConfig, store driven.SchedulerStore, ingest driving.IngestService) *Scheduler {
	return &Scheduler{
		config: config,
		store:  store,
		jobs: map[string]job{
			domain.TaskIDStagingIngest: {name: "Staging Ingest", run: stagingJob(ingest)},
		},
		wakeCh:  make(chan struct{}, 1),
		pending: make(map[string]bool),
	}
}

// stagingJob polls the staging folder once. Without an ingest service
// there is never anything to do.
func stagingJob(ingest driving.IngestService) func(context.Context) (domain.IngestReport, error) {
	return func(ctx context.Context) (domain.IngestReport, error) {
		if ingest == nil {
			return domain.IngestReport{}, nil
		}
		report, err := ingest.IngestStaging(ctx)
		if !report.Empty() {
			logger.Info("Ingested %d documents (%d chunks, %d rejected)",
				report.Documents, report.Chunks, len(report.Rejected))
		}
		return report, err
	}
}

// Start blocks until Stop is called or ctx is done. Starting a running
// scheduler returns at once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return nil
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("Scheduler disabled")
		select {
		case <-ctx.Done():
		case <-stopCh:
		}
		return nil
	}

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("Scheduler could not initialise tasks: %v", err)
	}
	return s.loop(ctx, stopCh)
}

// Stop ends the loop and waits for runs in progress.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Trigger asks for a run of taskID at the next check, typically because
// the watcher saw a new file. It returns false for a disabled or unknown
// task and when a run is already pending.
func (s *Scheduler) Trigger(taskID string) bool {
	if !s.config.Enabled || !s.config.Task(taskID).Enabled {
		return false
	}

	s.mu.Lock()
	already := s.pending[taskID]
	s.pending[taskID] = true
	s.mu.Unlock()

	if already {
		return false
	}
	s.wake()
	return true
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) isPending(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[taskID]
}

// History returns up to limit recorded staging polls, newest first. A limit
// of zero or less returns everything retained.
func (s *Scheduler) History(ctx context.Context, limit int) ([]domain.PollResult, error) {
	if limit <= 0 {
		limit = historyRetention
	}
	return s.store.RecentPolls(ctx, domain.TaskIDStagingIngest, limit)
}

// initialiseTasks stores every enabled task that has a job.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for id, j := range s.jobs {
		cfg := s.config.Task(id)
		if !cfg.Enabled {
			continue
		}
		if err := s.ensureTask(ctx, id, j.name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates the task or brings a stored one in line with cfg. A
// changed interval reschedules the next run from now.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case task == nil:
		task = &domain.ScheduledTask{ID: id, Name: name, Interval: cfg.Interval}
	case task.Interval != cfg.Interval:
		task.Interval = cfg.Interval
		task.NextRun = time.Now().Add(cfg.Interval)
	}
	task.Enabled = cfg.Enabled
	return s.store.SaveTask(ctx, task)
}

// checkInterval is the shortest enabled interval, between minCheckInterval
// and a minute.
func (s *Scheduler) checkInterval() time.Duration {
	interval := time.Minute
	for _, cfg := range s.config.Tasks {
		if cfg.Enabled && cfg.Interval > 0 {
			interval = min(interval, cfg.Interval)
		}
	}
	return max(interval, minCheckInterval)
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) error {
	ticker := time.NewTicker(s.checkInterval())
	defer ticker.Stop()

	for {
		s.runDue(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
		case <-s.wakeCh:
		}
	}
}

// runDue launches every enabled task that is due or triggered.
func (s *Scheduler) runDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("Scheduler could not list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if task.Enabled && (task.Due(now) || s.isPending(task.ID)) {
			s.launch(ctx, task)
		}
	}
}

// launch runs task in the background. While a run of the same task is in
// flight, the call joins it instead.
func (s *Scheduler) launch(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	done := s.flight.DoChan(task.ID, func() (any, error) {
		s.execute(ctx, task)
		return nil, nil
	})
	go func() {
		defer s.wg.Done()
		<-done
		// a trigger that arrived during the run gets a run of its own
		if s.isPending(task.ID) {
			s.wake()
		}
	}()
}

func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	delete(s.pending, task.ID)
	s.mu.Unlock()

	j, ok := s.jobs[task.ID]
	if !ok {
		logger.Warn("Scheduler skipped unknown task %s", task.ID)
		return
	}

	start := time.Now()
	report, err := j.run(ctx)
	end := time.Now()

	task.Finish(start, end, err)
	if err != nil {
		logger.Error("Task %s failed: %v", task.ID, err)
	}
	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Warn("Scheduler could not save task %s: %v", task.ID, saveErr)
	}

	// polls that found nothing would fill the history every few seconds
	if report.Empty() && err == nil {
		return
	}
	result := domain.NewPollResult(task.ID, start, end, report, err)
	if recordErr := s.store.RecordPoll(ctx, result); recordErr != nil {
		logger.Warn("Scheduler could not record poll of %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PrunePolls(ctx, historyRetention); pruneErr != nil {
		logger.Warn("Scheduler could not prune poll history: %v", pruneErr)
	}
}
