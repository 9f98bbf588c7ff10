package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredefinedColors(t *testing.T) {
	tests := []struct {
		name  string
		color Color
		code  string
	}{
		{"gray", Gray, "\033[90m"},
		{"green", Green, "\033[32m"},
		{"yellow", Yellow, "\033[33m"},
		{"red", Red, "\033[31m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code+"text"+resetCode, tt.color("text"))
		})
	}
}

func TestNewColor_EmptyText(t *testing.T) {
	blink := NewColor("\033[5m")
	assert.Equal(t, "\033[5m\033[0m", blink(""))
}
