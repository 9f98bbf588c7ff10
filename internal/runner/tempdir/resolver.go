package tempdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/isseis/go-remote-task-runner/internal/common"
	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// Origin identifies where a candidate parent location came from.
type Origin string

// Candidate origins, in resolution order.
const (
	// OriginConfig is an explicitly configured parent path
	OriginConfig Origin = "config"
	// OriginEnvironment is the value of the override environment variable
	OriginEnvironment Origin = "environment"
	// OriginUserDefault is the per-user cache location
	OriginUserDefault Origin = "user_default"
	// OriginSystemFallback is a shared system temp location
	OriginSystemFallback Origin = "system_fallback"
)

// DefaultUserTempDir is the per-user candidate, expanded for the privilege
// context's effective user.
const DefaultUserTempDir = "~/.cache/remote-task-runner/tmp"

// systemFallbacks are tried last, in order. /var/tmp is preferred over /tmp
// for its survival across reboots on most distributions.
var systemFallbacks = []string{"/var/tmp", "/tmp"}

// Candidate is one parent location considered during resolution.
type Candidate struct {
	Origin Origin
	Path   string
}

// Resolver walks the ordered candidate list for a privilege context and
// returns the first parent location that passes the writability probe.
type Resolver struct {
	fs     common.FileSystem
	logger *slog.Logger

	// seams for tests; production values are set by the constructors
	lookupEnv   func(key string) (string, bool)
	lookupUser  func(username string) (*user.User, error)
	currentUser func() (*user.User, error)
	accessFn    func(path string) error
}

// NewResolver creates a resolver backed by the real filesystem.
func NewResolver(logger *slog.Logger) *Resolver {
	return NewResolverWithFS(common.NewDefaultFileSystem(), logger)
}

// NewResolverWithFS creates a resolver with a custom FileSystem.
func NewResolverWithFS(fs common.FileSystem, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fs:          fs,
		logger:      logger,
		lookupEnv:   os.LookupEnv,
		lookupUser:  user.Lookup,
		currentUser: user.Current,
		accessFn:    accessWritable,
	}
}

// Resolve returns the first writable parent location for the privilege
// context. Candidates are tried in order: explicit configuration, the
// override environment variable, the per-user default, then the system
// fallbacks. Rejected candidates are logged at debug level; when every
// candidate fails the returned error wraps ErrNoWritableLocation and lists
// each failure.
func (r *Resolver) Resolve(ctx context.Context, priv runnertypes.PrivilegeContext, overrides Overrides) (string, error) {
	var failures []CandidateFailure

	for _, cand := range r.candidates(overrides) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		path, err := r.expand(cand.Path, priv)
		if err == nil {
			err = r.probe(path)
		}
		if err != nil {
			failures = append(failures, CandidateFailure{Origin: cand.Origin, Path: cand.Path, Err: err})
			r.logger.Debug("Temp parent candidate rejected",
				"origin", string(cand.Origin),
				"path", cand.Path,
				"privilege_context", priv,
				"error", err)
			continue
		}

		r.logger.Debug("Temp parent resolved",
			"origin", string(cand.Origin),
			"path", path,
			"privilege_context", priv)
		return path, nil
	}

	return "", &ResolveError{Failures: failures}
}

// candidates builds the ordered candidate list for one resolution.
func (r *Resolver) candidates(overrides Overrides) []Candidate {
	var list []Candidate

	if overrides.BasePath != "" {
		list = append(list, Candidate{Origin: OriginConfig, Path: overrides.BasePath})
	}

	envVar := overrides.EnvVar
	if envVar == "" {
		envVar = runnertypes.DefaultTempDirEnvVar
	}
	if value, ok := r.lookupEnv(envVar); ok && value != "" {
		list = append(list, Candidate{Origin: OriginEnvironment, Path: value})
	}

	list = append(list, Candidate{Origin: OriginUserDefault, Path: DefaultUserTempDir})
	for _, path := range systemFallbacks {
		list = append(list, Candidate{Origin: OriginSystemFallback, Path: path})
	}
	return list
}

// CandidateParents returns every expanded candidate parent location for the
// privilege context, in resolution order, without probing writability.
// Candidates that fail expansion are skipped. The janitor scans these
// locations for residual base directories.
func (r *Resolver) CandidateParents(priv runnertypes.PrivilegeContext, overrides Overrides) []string {
	var parents []string
	seen := make(map[string]struct{})

	for _, cand := range r.candidates(overrides) {
		path, err := r.expand(cand.Path, priv)
		if err != nil {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		parents = append(parents, path)
	}
	return parents
}

// expand performs $VAR and ~/~user expansion, with the bare ~ resolving to
// the effective user's home for the privilege context.
func (r *Resolver) expand(path string, priv runnertypes.PrivilegeContext) (string, error) {
	expanded := os.Expand(path, func(key string) string {
		value, _ := r.lookupEnv(key)
		return value
	})

	switch {
	case expanded == "~" || strings.HasPrefix(expanded, "~/"):
		home, err := r.homeDir(priv.EffectiveUser())
		if err != nil {
			return "", err
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	case strings.HasPrefix(expanded, "~"):
		name, rest, _ := strings.Cut(strings.TrimPrefix(expanded, "~"), "/")
		home, err := r.homeDir(name)
		if err != nil {
			return "", err
		}
		expanded = filepath.Join(home, rest)
	}

	if expanded == "" {
		return "", fmt.Errorf("candidate expands to an empty path")
	}
	expanded = filepath.Clean(expanded)
	if !filepath.IsAbs(expanded) {
		return "", fmt.Errorf("candidate %q is not an absolute path", expanded)
	}
	if common.ContainsPathTraversalSegment(expanded) {
		return "", fmt.Errorf("candidate %q contains a path traversal segment", expanded)
	}
	return expanded, nil
}

// homeDir resolves a user's home directory. An empty username or the current
// process user avoids a passwd lookup.
func (r *Resolver) homeDir(username string) (string, error) {
	if current, err := r.currentUser(); err == nil && current.HomeDir != "" {
		if username == "" || username == current.Username {
			return current.HomeDir, nil
		}
	}
	if username == "" {
		return "", fmt.Errorf("cannot determine home directory: no username and no current user")
	}

	u, err := r.lookupUser(username)
	if err != nil {
		return "", fmt.Errorf("home directory lookup for %q: %w", username, err)
	}
	if u.HomeDir == "" {
		return "", fmt.Errorf("user %q has no home directory", username)
	}
	return u.HomeDir, nil
}

// probe verifies that a candidate parent is usable: it exists as a directory
// (created 0700 if missing), accepts a file write, and passes the platform
// access check. Probing mutates nothing permanent; the probe file is removed
// before returning.
func (r *Resolver) probe(path string) error {
	existed, err := r.fs.FileExists(path)
	if err != nil {
		return fmt.Errorf("checking candidate: %w", err)
	}
	if existed {
		isDir, err := r.fs.IsDir(path)
		if err != nil {
			return fmt.Errorf("checking candidate: %w", err)
		}
		if !isDir {
			return fmt.Errorf("candidate exists and is not a directory")
		}
	}

	if err := r.fs.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("creating candidate: %w", err)
	}
	if !existed {
		// MkdirAll perm is subject to umask; fix the leaf explicitly.
		if err := r.fs.Chmod(path, dirPerm); err != nil {
			return fmt.Errorf("setting candidate permissions: %w", err)
		}
	}

	suffix, err := randomHex(probeSuffixHexLen)
	if err != nil {
		return err
	}
	probePath := filepath.Join(path, ".rtr-probe-"+suffix)
	if err := r.fs.WriteFile(probePath, nil, 0o600); err != nil {
		return fmt.Errorf("probe write: %w", err)
	}
	if err := r.fs.Remove(probePath); err != nil {
		return fmt.Errorf("probe cleanup: %w", err)
	}

	if r.accessFn != nil {
		if err := r.accessFn(path); err != nil {
			return fmt.Errorf("access check: %w", err)
		}
	}
	return nil
}
