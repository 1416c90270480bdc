package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  LogLevel
	}{
		{name: "debug lower", input: "debug", want: LevelDebug},
		{name: "info upper", input: "INFO", want: LevelInfo},
		{name: "warn mixed", input: "WaRn", want: LevelWarn},
		{name: "warning alias", input: "warning", want: LevelWarn},
		{name: "error", input: "error", want: LevelError},
		{name: "fatal", input: "fatal", want: LevelFatal},
		{name: "trim spaces", input: "  debug  ", want: LevelDebug},
		{name: "unknown fallback", input: "verbose", want: LevelInfo},
		{name: "empty fallback", input: "", want: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger := NewLogger(LevelWarn)
	assert.Equal(t, LevelWarn, logger.level)

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.level)
}

func TestGetLoggerDefault(t *testing.T) {
	globalLogger = nil
	logger := GetLogger()
	assert.NotNil(t, logger)
	assert.Equal(t, LevelInfo, logger.level)
}
