package tempdir

import (
	"io"
	"log/slog"
	"os/user"

	"github.com/isseis/go-remote-task-runner/internal/common"
)

// testHost is a minimal Host implementation for unit tests.
type testHost struct {
	id        string
	states    *StateMap
	overrides Overrides
}

func newTestHost(id string, overrides Overrides) *testHost {
	return &testHost{
		id:        id,
		states:    NewStateMap(),
		overrides: overrides,
	}
}

func (h *testHost) ID() string           { return h.id }
func (h *testHost) States() *StateMap    { return h.states }
func (h *testHost) Overrides() Overrides { return h.overrides }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestResolver builds a resolver over a mock filesystem with fixed user
// and environment lookups, and without the platform access check (the mock
// filesystem has no real paths to probe).
func newTestResolver(fsys common.FileSystem, env map[string]string) *Resolver {
	r := NewResolverWithFS(fsys, discardLogger())
	r.lookupEnv = func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	r.currentUser = func() (*user.User, error) {
		return &user.User{Username: "alice", Uid: "1000", HomeDir: "/home/alice"}, nil
	}
	r.lookupUser = func(username string) (*user.User, error) {
		switch username {
		case "alice":
			return &user.User{Username: "alice", Uid: "1000", HomeDir: "/home/alice"}, nil
		case "root":
			return &user.User{Username: "root", Uid: "0", HomeDir: "/root"}, nil
		case "deploy":
			return &user.User{Username: "deploy", Uid: "1200", HomeDir: "/home/deploy"}, nil
		default:
			return nil, user.UnknownUserError(username)
		}
	}
	r.accessFn = nil
	return r
}

// newTestAllocator pairs a mock filesystem with a test resolver.
func newTestAllocator(fsys common.FileSystem, env map[string]string) *Allocator {
	return NewAllocatorWithFS(fsys, newTestResolver(fsys, env), discardLogger())
}
