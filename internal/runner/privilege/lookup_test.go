package privilege

import (
	"os/user"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupUID_CurrentUser(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	uid, err := LookupUID(current.Username)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uid, 0)
}

func TestLookupUID_UnknownUser(t *testing.T) {
	_, err := LookupUID("no-such-user-84f2")
	assert.Error(t, err)
}
