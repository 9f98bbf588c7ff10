package privilege

import (
	"errors"
	"fmt"
	"time"

	"github.com/isseis/go-remote-task-runner/internal/runner/runnertypes"
)

// Standard errors
var (
	ErrPrivilegeElevationFailed   = errors.New("failed to elevate privileges")
	ErrPrivilegeRestorationFailed = errors.New("failed to restore privileges")
	ErrInvalidUID                 = errors.New("invalid user ID")
)

// Error contains detailed information about privilege operation failures
type Error struct {
	Operation    runnertypes.Operation
	ConnectionID string
	OriginalUID  int
	TargetUID    int
	SyscallErr   error
	Timestamp    time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("privilege operation '%s' failed for connection '%s' (uid %d->%d): %v",
		e.Operation, e.ConnectionID, e.OriginalUID, e.TargetUID, e.SyscallErr)
}

func (e *Error) Unwrap() error {
	return e.SyscallErr
}
