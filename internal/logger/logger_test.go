package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		checkFunc func(t *testing.T, output string)
	}{
		{
			name:   "text logger at info level",
			config: Config{Level: "info", Format: "text", Output: "stdout"},
			checkFunc: func(t *testing.T, output string) {
				if !strings.Contains(output, "level=INFO") ||
					!strings.Contains(output, `msg="test message"`) {
					t.Errorf("expected text log output with info level and message, got: %s", output)
				}
			},
		},
		{
			name:   "json logger at debug level",
			config: Config{Level: "debug", Format: "json", Output: "stdout"},
			checkFunc: func(t *testing.T, output string) {
				var entry map[string]interface{}
				if err := json.Unmarshal([]byte(output), &entry); err != nil {
					t.Fatalf("failed to unmarshal JSON log: %v, output: %s", err, output)
				}
				if entry["msg"] != "test message" {
					t.Errorf("expected JSON log output with message, got: %v", entry)
				}
			},
		},
		{
			name:   "invalid level falls back to info",
			config: Config{Level: "chatty", Format: "text"},
			checkFunc: func(t *testing.T, output string) {
				if !strings.Contains(output, "level=INFO") {
					t.Errorf("expected info level fallback, got: %s", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.config, &buf)
			logger.Info("test message")
			tt.checkFunc(t, buf.String())
		})
	}
}

func TestNewLogger_DebugFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: "text"}, &buf)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message should be filtered at info level, got: %s", buf.String())
	}
}
