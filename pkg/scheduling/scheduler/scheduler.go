package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
	"github.com/vnykmshr/workerpool/pkg/common/validation"
	"github.com/vnykmshr/workerpool/pkg/metrics"
	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

// Config holds scheduler configuration.
type Config struct {
	// Location is the time zone schedules are evaluated in. Defaults to time.Local.
	Location *time.Location

	// WithSeconds switches to six-field expressions with a leading seconds field.
	WithSeconds bool

	// OnSubmitError is called when the executor rejects a job.
	OnSubmitError func(id string, err error)

	// Name labels the scheduler's metrics. Defaults to "default".
	Name string

	// Metrics receives scheduler instrumentation when non-nil.
	Metrics *metrics.Registry
}

// Options tune a single schedule.
type Options struct {
	// SkipIfStillRunning drops a firing while the job submitted by an earlier
	// firing has not finished. A job accepted by the executor but never run
	// (queued on a pool whose workers have all exited, or discarded when the
	// last receiver closes) keeps every later firing skipped.
	SkipIfStillRunning bool

	// MaxRuns removes the schedule after this many successful submissions.
	// Zero means unlimited.
	MaxRuns int64
}

// Entry describes a registered schedule.
type Entry struct {
	ID   string
	Spec string
	Next time.Time
	Prev time.Time
	Runs int64
}

type entry struct {
	id     string
	spec   string
	job    workerpool.Job
	opts   Options
	cronID cron.EntryID

	inFlight atomic.Bool
	runs     atomic.Int64
}

// Scheduler feeds jobs to an Executor on cron schedules.
type Scheduler struct {
	exec   workerpool.Executor
	config Config
	parser cron.Parser
	cron   *cron.Cron

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a scheduler with default configuration.
func New(exec workerpool.Executor) *Scheduler {
	s, err := NewWithConfig(exec, Config{})
	if err != nil {
		panic(err)
	}
	return s
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(exec workerpool.Executor, config Config) (*Scheduler, error) {
	if err := validation.ValidateNotNil("scheduler", "executor", exec); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Name == "" {
		config.Name = "default"
	}

	fields := cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
	if config.WithSeconds {
		fields |= cron.Second
	}
	parser := cron.NewParser(fields)

	return &Scheduler{
		exec:    exec,
		config:  config,
		parser:  parser,
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(config.Location)),
		entries: make(map[string]*entry),
	}, nil
}

// ValidateSpec reports whether spec parses under this scheduler's format.
func (s *Scheduler) ValidateSpec(spec string) error {
	if err := validation.ValidateNotEmpty("scheduler", "spec", spec); err != nil {
		return err
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return gferrors.NewValidationError("scheduler", "spec", spec, err.Error())
	}
	return nil
}

// Schedule registers job under id to be submitted whenever spec fires.
func (s *Scheduler) Schedule(id, spec string, job workerpool.Job) error {
	return s.ScheduleWithOptions(id, spec, job, Options{})
}

// ScheduleWithOptions is Schedule with per-schedule options.
func (s *Scheduler) ScheduleWithOptions(id, spec string, job workerpool.Job, opts Options) error {
	if err := s.ValidateSpec(spec); err != nil {
		return err
	}
	schedule, _ := s.parser.Parse(spec)
	return s.add(id, spec, schedule, job, opts)
}

// ScheduleEvery registers job under id to be submitted every interval.
// Intervals below one second are rounded up to one second.
func (s *Scheduler) ScheduleEvery(id string, interval time.Duration, job workerpool.Job) error {
	return s.ScheduleEveryWithOptions(id, interval, job, Options{})
}

// ScheduleEveryWithOptions is ScheduleEvery with per-schedule options.
func (s *Scheduler) ScheduleEveryWithOptions(id string, interval time.Duration, job workerpool.Job, opts Options) error {
	if err := validation.ValidatePositiveDuration("scheduler", "interval", interval); err != nil {
		return err
	}
	return s.add(id, "@every "+interval.String(), cron.Every(interval), job, opts)
}

func (s *Scheduler) add(id, spec string, schedule cron.Schedule, job workerpool.Job, opts Options) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", id); err != nil {
		return err
	}
	if job == nil {
		return gferrors.NewValidationError("scheduler", "job", nil, "cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("schedule %q: %w", id, gferrors.ErrDuplicate)
	}

	e := &entry{id: id, spec: spec, job: job, opts: opts}
	e.cronID = s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(e) }))
	s.entries[id] = e
	return nil
}

// Remove unregisters the schedule with the given id. Jobs already submitted
// are unaffected.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cron.Remove(e.cronID)
	delete(s.entries, id)
	return true
}

// Next returns the next firing time of a schedule. It is the zero time until
// the scheduler has been started.
func (s *Scheduler) Next(id string) (time.Time, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, fmt.Errorf("schedule %q: %w", id, gferrors.ErrNotFound)
	}
	return s.cron.Entry(e.cronID).Next, nil
}

// IDs returns the registered schedule ids in sorted order.
func (s *Scheduler) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns a snapshot of every schedule, sorted by id.
func (s *Scheduler) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		ce := s.cron.Entry(e.cronID)
		out = append(out, Entry{
			ID:   e.id,
			Spec: e.spec,
			Next: ce.Next,
			Prev: ce.Prev,
			Runs: e.runs.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start begins firing schedules in a background goroutine. It is a no-op if
// the scheduler is already running.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts firing. The returned channel closes once any firing in progress
// has finished submitting; submitted jobs keep running on the executor.
func (s *Scheduler) Stop() <-chan struct{} {
	return s.cron.Stop().Done()
}

// fire submits the job of e once.
func (s *Scheduler) fire(e *entry) {
	s.countTick(e.id)

	if e.opts.SkipIfStillRunning && !e.inFlight.CompareAndSwap(false, true) {
		s.countSkip(e.id)
		return
	}

	job := e.job
	if e.opts.SkipIfStillRunning {
		job = func() {
			defer e.inFlight.Store(false)
			e.job()
		}
	}

	if err := s.exec.Execute(job); err != nil {
		if e.opts.SkipIfStillRunning {
			e.inFlight.Store(false)
		}
		s.countError(e.id)
		if s.config.OnSubmitError != nil {
			s.config.OnSubmitError(e.id, err)
		}
		return
	}

	runs := e.runs.Add(1)
	if e.opts.MaxRuns > 0 && runs >= e.opts.MaxRuns {
		s.removeEntry(e)
	}
}

// removeEntry unregisters e unless its id has since been taken by another
// schedule.
func (s *Scheduler) removeEntry(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[e.id] != e {
		return
	}
	s.cron.Remove(e.cronID)
	delete(s.entries, e.id)
}

func (s *Scheduler) countTick(id string) {
	if s.config.Metrics != nil {
		s.config.Metrics.ScheduleTicks.WithLabelValues(s.config.Name, id).Inc()
	}
}

func (s *Scheduler) countSkip(id string) {
	if s.config.Metrics != nil {
		s.config.Metrics.ScheduleSkips.WithLabelValues(s.config.Name, id).Inc()
	}
}

func (s *Scheduler) countError(id string) {
	if s.config.Metrics != nil {
		s.config.Metrics.ScheduleErrors.WithLabelValues(s.config.Name, id).Inc()
	}
}
