// Package schedule runs named maintenance tasks on cron patterns.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Service owns the cron runner and the registered tasks.
type Service struct {
	cron    *cron.Cron
	parser  cron.Parser
	timeout time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	tasks   map[string]Task
}

// NewService creates a stopped scheduler. runTimeout bounds each scheduled run; zero means unbounded.
func NewService(log *slog.Logger, runTimeout time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Service{
		cron:    cron.New(cron.WithParser(parser)),
		parser:  parser,
		timeout: runTimeout,
		logger:  log.With(slog.String("service", "schedule")),
		jobs:    map[string]cron.EntryID{},
		tasks:   map[string]Task{},
	}
}

// Add registers a task. Patterns accept an optional seconds field and descriptors like @daily.
func (s *Service) Add(task Task) error {
	name := strings.TrimSpace(task.Name)
	if name == "" || strings.TrimSpace(task.Pattern) == "" || task.Run == nil {
		return fmt.Errorf("name, pattern, run are required")
	}
	if _, err := s.parser.Parse(task.Pattern); err != nil {
		return fmt.Errorf("invalid cron pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, name)
	}
	entryID, err := s.cron.AddFunc(task.Pattern, func() { s.runScheduled(task) })
	if err != nil {
		return err
	}
	task.Name = name
	s.jobs[name] = entryID
	s.tasks[name] = task
	s.logger.Info("task scheduled", slog.String("task", name), slog.String("pattern", task.Pattern))
	return nil
}

// Remove unregisters a task.
func (s *Service) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.jobs[name]
	if ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		delete(s.tasks, name)
	}
}

// Trigger runs a task now, outside its schedule, and returns its error.
func (s *Service) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return task.Run(ctx)
}

// List returns the registered tasks with their next run time.
func (s *Service) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Info, 0, len(s.tasks))
	for name, task := range s.tasks {
		entry := s.cron.Entry(s.jobs[name])
		items = append(items, Info{
			Name:    name,
			Pattern: task.Pattern,
			Next:    entry.Next,
			Prev:    entry.Prev,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// Start begins firing scheduled tasks.
func (s *Service) Start() {
	s.cron.Start()
}

// Stop stops the runner and waits for running tasks until ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) runScheduled(task Task) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.logger.Error("scheduled task failed",
			slog.String("task", task.Name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Debug("scheduled task finished", slog.String("task", task.Name), slog.Duration("elapsed", time.Since(start)))
}
