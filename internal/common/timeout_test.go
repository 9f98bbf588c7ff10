package common

import (
	"testing"
)

func TestResolveTimeout(t *testing.T) {
	tests := []struct {
		name           string
		taskTimeout    *int32
		globalTimeout  *int32
		expectedResult int32
	}{
		{
			name:           "all nil - use default",
			taskTimeout:    nil,
			globalTimeout:  nil,
			expectedResult: DefaultTimeout,
		},
		{
			name:           "task timeout takes precedence",
			taskTimeout:    Int32Ptr(120),
			globalTimeout:  Int32Ptr(60),
			expectedResult: 120,
		},
		{
			name:           "global timeout when task is nil",
			taskTimeout:    nil,
			globalTimeout:  Int32Ptr(45),
			expectedResult: 45,
		},
		{
			name:           "task timeout 0 (unlimited)",
			taskTimeout:    Int32Ptr(0),
			globalTimeout:  Int32Ptr(60),
			expectedResult: 0,
		},
		{
			name:           "global timeout 0 (unlimited)",
			taskTimeout:    nil,
			globalTimeout:  Int32Ptr(0),
			expectedResult: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolveTimeout(tt.taskTimeout, tt.globalTimeout)
			if result != tt.expectedResult {
				t.Errorf("ResolveTimeout() = %d, want %d", result, tt.expectedResult)
			}
		})
	}
}

func TestResolveTimeoutWithContext(t *testing.T) {
	tests := []struct {
		name            string
		taskTimeout     *int32
		globalTimeout   *int32
		taskName        string
		connectionID    string
		expectedTimeout int32
		expectedLevel   string
	}{
		{
			name:            "task level resolution",
			taskTimeout:     Int32Ptr(120),
			globalTimeout:   Int32Ptr(60),
			taskName:        "test-task",
			connectionID:    "build-host",
			expectedTimeout: 120,
			expectedLevel:   "task",
		},
		{
			name:            "global level resolution",
			taskTimeout:     nil,
			globalTimeout:   Int32Ptr(30),
			taskName:        "test-task",
			connectionID:    "build-host",
			expectedTimeout: 30,
			expectedLevel:   "global",
		},
		{
			name:            "default level resolution",
			taskTimeout:     nil,
			globalTimeout:   nil,
			taskName:        "test-task",
			connectionID:    "build-host",
			expectedTimeout: DefaultTimeout,
			expectedLevel:   "default",
		},
		{
			name:            "task unlimited takes precedence",
			taskTimeout:     Int32Ptr(0),
			globalTimeout:   Int32Ptr(60),
			taskName:        "unlimited-task",
			connectionID:    "build-host",
			expectedTimeout: 0,
			expectedLevel:   "task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout, context := ResolveTimeoutWithContext(
				tt.taskTimeout,
				tt.globalTimeout,
				tt.taskName,
				tt.connectionID,
			)

			if timeout != tt.expectedTimeout {
				t.Errorf("ResolveTimeoutWithContext() timeout = %d, want %d", timeout, tt.expectedTimeout)
			}

			if context.Level != tt.expectedLevel {
				t.Errorf("ResolveTimeoutWithContext() level = %s, want %s", context.Level, tt.expectedLevel)
			}

			if context.TaskName != tt.taskName {
				t.Errorf("ResolveTimeoutWithContext() taskName = %s, want %s", context.TaskName, tt.taskName)
			}

			if context.ConnectionID != tt.connectionID {
				t.Errorf("ResolveTimeoutWithContext() connectionID = %s, want %s", context.ConnectionID, tt.connectionID)
			}
		})
	}
}

func TestIsUnlimitedTimeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  int32
		expected bool
	}{
		{
			name:     "zero timeout is unlimited",
			timeout:  0,
			expected: true,
		},
		{
			name:     "positive timeout is not unlimited",
			timeout:  60,
			expected: false,
		},
		{
			name:     "large timeout is not unlimited",
			timeout:  3600,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsUnlimitedTimeout(tt.timeout)
			if result != tt.expected {
				t.Errorf("IsUnlimitedTimeout(%d) = %t, want %t", tt.timeout, result, tt.expected)
			}
		})
	}
}

func TestIsDefaultTimeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  int32
		expected bool
	}{
		{
			name:     "default timeout value",
			timeout:  DefaultTimeout,
			expected: true,
		},
		{
			name:     "zero timeout is not default",
			timeout:  0,
			expected: false,
		},
		{
			name:     "custom timeout is not default",
			timeout:  120,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsDefaultTimeout(tt.timeout)
			if result != tt.expected {
				t.Errorf("IsDefaultTimeout(%d) = %t, want %t", tt.timeout, result, tt.expected)
			}
		})
	}
}
