package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSensitivePatterns_Keys(t *testing.T) {
	patterns := DefaultSensitivePatterns()

	sensitive := []string{
		"password",
		"secret_key",
		"api_token",
		"ssh_passphrase",
		"AWS_ACCESS_KEY_ID",
		"authorization",
	}
	for _, key := range sensitive {
		assert.True(t, patterns.IsSensitiveKey(key), "key %q should be sensitive", key)
	}

	safe := []string{"username", "task", "run_id", "hostname", "connection_id"}
	for _, key := range safe {
		assert.False(t, patterns.IsSensitiveKey(key), "key %q should not be sensitive", key)
	}
}

func TestDefaultSensitivePatterns_Values(t *testing.T) {
	patterns := DefaultSensitivePatterns()

	assert.True(t, patterns.IsSensitiveValue("my_password_123"))
	assert.True(t, patterns.IsSensitiveValue("bearer_token"))
	assert.False(t, patterns.IsSensitiveValue("deploy finished"))
	assert.False(t, patterns.IsSensitiveValue("/var/tmp/runner"))
}

func TestDefaultSensitivePatterns_EnvVars(t *testing.T) {
	patterns := DefaultSensitivePatterns()

	tests := []struct {
		name      string
		sensitive bool
	}{
		{"MY_PASSWORD", true},
		{"SSH_PASSPHRASE", true},
		{"API_SECRET", true},
		{"DATABASE_TOKEN", true},
		{"PATH", false},
		{"HOME", false},
		{"RUNNER_REMOTE_TMP", false},
		{"WORKERS", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.sensitive, patterns.IsSensitiveEnvVar(tt.name), "env var %q", tt.name)
	}

	// The allow list is matched case-insensitively
	assert.False(t, patterns.IsSensitiveEnvVar("path"))
}

func TestSensitivePatterns_ZeroValueMatchesNothing(t *testing.T) {
	patterns := &SensitivePatterns{}

	assert.False(t, patterns.IsSensitiveKey("password"))
	assert.False(t, patterns.IsSensitiveValue("my_token"))
	assert.False(t, patterns.IsSensitiveEnvVar("MY_PASSWORD"))
}

func TestBuildCombinedPatterns(t *testing.T) {
	patterns := &SensitivePatterns{}

	err := patterns.buildCombinedPatterns(
		[]string{`(?i)password`, `(?i)token`},
		[]string{`(?i).*SECRET.*`},
	)
	require.NoError(t, err)

	assert.True(t, patterns.IsSensitiveKey("PASSWORD"))
	assert.True(t, patterns.IsSensitiveKey("auth_token"))
	assert.False(t, patterns.IsSensitiveKey("username"))

	assert.True(t, patterns.IsSensitiveEnvVar("APP_SECRET_KEY"))
	assert.False(t, patterns.IsSensitiveEnvVar("APP_CONFIG"))
}

func TestBuildCombinedPatterns_InvalidPattern(t *testing.T) {
	patterns := &SensitivePatterns{}

	err := patterns.buildCombinedPatterns([]string{`[invalid`}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile")
}

func TestBuildCombinedPatterns_EmptyLists(t *testing.T) {
	patterns := &SensitivePatterns{}

	require.NoError(t, patterns.buildCombinedPatterns(nil, nil))
	assert.False(t, patterns.IsSensitiveKey("password"))
	assert.False(t, patterns.IsSensitiveEnvVar("MY_PASSWORD"))
}

func BenchmarkIsSensitiveKey(b *testing.B) {
	patterns := DefaultSensitivePatterns()
	keys := []string{"password", "task", "aws_access_key_id", "username", "bearer_token"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		patterns.IsSensitiveKey(keys[i%len(keys)])
	}
}

func BenchmarkIsSensitiveEnvVar(b *testing.B) {
	patterns := DefaultSensitivePatterns()
	names := []string{"MY_PASSWORD", "PATH", "API_SECRET", "WORKERS"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		patterns.IsSensitiveEnvVar(names[i%len(names)])
	}
}
