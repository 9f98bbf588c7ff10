// Package janitor sweeps residual temp base directories left behind by
// crashed or killed runs. Cleanup on the normal paths is best effort, so
// bases can outlive their run; the sweeper bounds how long they linger by
// periodically removing stale bases from the candidate parent locations.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
	"github.com/isseis/go-remote-task-runner/internal/runner/tempdir"
)

var (
	// ErrInvalidSchedule indicates the configured sweep schedule is not a
	// valid cron expression.
	ErrInvalidSchedule = errors.New("invalid janitor schedule")

	// ErrInvalidMaxAge indicates the configured max age is not a valid
	// positive duration.
	ErrInvalidMaxAge = errors.New("invalid janitor max age")
)

// LiveBaseLister reports the base directories currently owned by live
// connections. The sweeper never removes a live base regardless of its age.
type LiveBaseLister interface {
	LiveBases() []string
}

// Sweeper removes residual base directories from the candidate parent
// locations on a cron schedule. Only directories matching the base naming
// convention are considered, and only once they are older than the
// configured max age. A sweeper built from a disabled config is inert:
// Start and Stop are no-ops, though Sweep still works when called directly.
type Sweeper struct {
	fs      common.FileSystem
	logger  *slog.Logger
	lister  LiveBaseLister
	parents []string

	enabled  bool
	schedule string
	maxAge   time.Duration

	// now is replaced in tests for deterministic age checks.
	now func() time.Time

	mu   sync.Mutex
	cron *rcron.Cron
}

// NewSweeper creates a sweeper backed by the real filesystem. parents is the
// ordered list of locations to scan, typically Resolver.CandidateParents for
// each privilege context in use.
func NewSweeper(cfg runnertypes.JanitorConfig, parents []string, lister LiveBaseLister, logger *slog.Logger) (*Sweeper, error) {
	return NewSweeperWithFS(common.NewDefaultFileSystem(), cfg, parents, lister, logger)
}

// NewSweeperWithFS creates a sweeper with a custom FileSystem. The schedule
// and max age fall back to the runnertypes defaults when unset and are
// validated here, so a misconfigured janitor fails at construction rather
// than at the first scheduled sweep.
func NewSweeperWithFS(fsys common.FileSystem, cfg runnertypes.JanitorConfig, parents []string, lister LiveBaseLister, logger *slog.Logger) (*Sweeper, error) {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = runnertypes.DefaultJanitorSchedule
	}
	if _, err := rcron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, schedule, err)
	}

	maxAgeSpec := cfg.MaxAge
	if maxAgeSpec == "" {
		maxAgeSpec = runnertypes.DefaultJanitorMaxAge
	}
	maxAge, err := time.ParseDuration(maxAgeSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidMaxAge, maxAgeSpec, err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("%w: %q: must be positive", ErrInvalidMaxAge, maxAgeSpec)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		fs:       fsys,
		logger:   logger,
		lister:   lister,
		parents:  parents,
		enabled:  cfg.Enabled,
		schedule: schedule,
		maxAge:   maxAge,
		now:      time.Now,
	}, nil
}

// Start registers the sweep schedule and begins running it in the
// background. Starting a disabled or already started sweeper does nothing.
func (s *Sweeper) Start() error {
	if !s.enabled {
		s.logger.Debug("Janitor disabled, residual directories are not swept")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := rcron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, s.schedule, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("Janitor started",
		"schedule", s.schedule,
		"max_age", s.maxAge.String(),
		"parents", len(s.parents))
	return nil
}

// Stop halts scheduled sweeping and waits for an in-flight sweep to finish.
// Safe to call on a never-started sweeper and safe to call twice.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("Janitor stopped")
}

// Sweep performs one pass over the candidate parents and returns how many
// residual directories it removed. Removal failures are logged and skipped
// so one stubborn directory cannot shadow the rest.
func (s *Sweeper) Sweep(ctx context.Context) int {
	live := common.SliceToSet(s.lister.LiveBases())
	cutoff := s.now().Add(-s.maxAge)

	removed := 0
	for _, parent := range s.parents {
		if ctx.Err() != nil {
			break
		}
		removed += s.sweepParent(parent, live, cutoff)
	}

	if removed > 0 {
		s.logger.Info("Janitor sweep finished", "removed", removed)
	}
	return removed
}

// sweepParent removes the stale residual bases directly under one parent.
func (s *Sweeper) sweepParent(parent string, live map[string]struct{}, cutoff time.Time) int {
	entries, err := s.fs.ReadDir(parent)
	if err != nil {
		// Parents are candidate locations, not guarantees; most runs never
		// create the user-default one.
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Janitor cannot scan parent", "parent", parent, "error", err)
		}
		return 0
	}

	discovered := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() && tempdir.IsBaseDirName(entry.Name()) {
			discovered[filepath.Join(parent, entry.Name())] = struct{}{}
		}
	}

	removed := 0
	for _, path := range common.SetDifferenceToSlice(discovered, live) {
		info, err := s.fs.Lstat(path)
		if err != nil {
			s.logger.Warn("Janitor cannot stat residual directory", "path", path, "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := s.fs.RemoveAll(path); err != nil {
			s.logger.Warn("Janitor cannot remove residual directory", "path", path, "error", err)
			continue
		}
		s.logger.Info("Residual directory removed",
			"path", path,
			"age", s.now().Sub(info.ModTime()).Round(time.Second).String())
		removed++
	}
	return removed
}
