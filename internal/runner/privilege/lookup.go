package privilege

import (
	"fmt"
	"os/user"
	"strconv"
)

// LookupUID resolves a username to its numeric user ID.
func LookupUID(username string) (int, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, fmt.Errorf("user lookup for %q: %w", username, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric uid %q for user %q", ErrInvalidUID, u.Uid, username)
	}
	if uid < 0 {
		return 0, fmt.Errorf("%w: negative uid %d for user %q", ErrInvalidUID, uid, username)
	}
	return uid, nil
}
