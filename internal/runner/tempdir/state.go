package tempdir

import (
	"sort"
	"sync"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// State holds the resolved temp directory information for one
// (connection, privilege context) pair. The base path is immutable once set;
// a reset discards the whole State rather than mutating it.
type State struct {
	// mu also serializes lazy base resolution, so concurrent first users
	// of a key perform exactly one resolution.
	mu         sync.Mutex
	priv       runnertypes.PrivilegeContext
	basePath   string
	resolvedAt time.Time
	subdirs    map[string]struct{}
}

// Privilege returns the privilege context this state belongs to.
func (s *State) Privilege() runnertypes.PrivilegeContext {
	return s.priv
}

// Base returns the resolved base path, if resolution has happened.
func (s *State) Base() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basePath, s.basePath != ""
}

// ResolvedAt returns when the base was resolved; zero before resolution.
func (s *State) ResolvedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolvedAt
}

// resolveOnce returns the cached base path, invoking fn to produce it on the
// first call. The state mutex is held across fn so concurrent callers block
// until the single resolution finishes.
func (s *State) resolveOnce(fn func() (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.basePath != "" {
		return s.basePath, nil
	}

	base, err := fn()
	if err != nil {
		return "", err
	}

	s.basePath = base
	s.resolvedAt = time.Now()
	return base, nil
}

// registerSubdir records a task directory as tracked by this state.
func (s *State) registerSubdir(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subdirs[path] = struct{}{}
}

// releaseSubdir removes a task directory from tracking and reports whether
// it was tracked.
func (s *State) releaseSubdir(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subdirs[path]; !ok {
		return false
	}
	delete(s.subdirs, path)
	return true
}

// snapshot returns the base path and the tracked task directories.
func (s *State) snapshot() (string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subdirs := make([]string, 0, len(s.subdirs))
	for path := range s.subdirs {
		subdirs = append(subdirs, path)
	}
	sort.Strings(subdirs)
	return s.basePath, subdirs
}

// StateMap tracks the per-privilege-context temp states of one connection,
// keyed by PrivilegeContext.Key(). The map mutex only guards map access; it
// is never held across filesystem I/O.
type StateMap struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewStateMap creates an empty state map.
func NewStateMap() *StateMap {
	return &StateMap{states: make(map[string]*State)}
}

// Get returns the state for a privilege context, creating it if missing.
func (m *StateMap) Get(priv runnertypes.PrivilegeContext) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := priv.Key()
	if s, ok := m.states[key]; ok {
		return s
	}
	s := &State{priv: priv, subdirs: make(map[string]struct{})}
	m.states[key] = s
	return s
}

// Peek returns the state for a privilege context without creating one.
func (m *StateMap) Peek(priv runnertypes.PrivilegeContext) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[priv.Key()]
	return s, ok
}

// Take removes and returns the state for a privilege context. The next Get
// for the same context starts from scratch.
func (m *StateMap) Take(priv runnertypes.PrivilegeContext) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[priv.Key()]
	if ok {
		delete(m.states, priv.Key())
	}
	return s, ok
}

// TakeAll removes and returns every tracked state.
func (m *StateMap) TakeAll() []*State {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]*State, 0, len(m.states))
	for _, s := range m.states {
		states = append(states, s)
	}
	m.states = make(map[string]*State)
	return states
}

// Len returns the number of tracked states.
func (m *StateMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// BasePaths returns the resolved base paths across all tracked states.
// The janitor uses this to exclude live bases from sweeps.
func (m *StateMap) BasePaths() []string {
	m.mu.Lock()
	states := make([]*State, 0, len(m.states))
	for _, s := range m.states {
		states = append(states, s)
	}
	m.mu.Unlock()

	var paths []string
	for _, s := range states {
		if base, ok := s.Base(); ok {
			paths = append(paths, base)
		}
	}
	sort.Strings(paths)
	return paths
}
