package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igosint/pkg/config"
)

func newJSONLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level, Format: "json"}, &buf)
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"empty level defaults to warn", &config.LoggingConfig{}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "debug", File: filepath.Join(t.TempDir(), "logs", "igosint.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.WarnLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("shown warn")
	l.Error("shown error")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown warn", lines[0]["message"])
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "igosint", lines[0]["app"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")

	child := l.WithField("run_id", "abc").WithFields(map[string]interface{}{"command": "comments"})
	child.Info("child")
	l.Info("parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "abc", lines[0]["run_id"])
	assert.Equal(t, "comments", lines[0]["command"])
	assert.NotContains(t, lines[1], "run_id")
}

func TestWithError(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")

	assert.Same(t, l, l.WithError(nil))
	l.WithError(errors.New("boom")).Error("failed")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestFieldTypes(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")

	l.InfoWithFields("typed", map[string]interface{}{
		"count":   3,
		"ok":      true,
		"elapsed": 1500 * time.Millisecond,
		"tags":    []string{"a", "b"},
	})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(3), lines[0]["count"])
	assert.Equal(t, true, lines[0]["ok"])
	assert.Equal(t, []interface{}{"a", "b"}, lines[0]["tags"])
	assert.Contains(t, lines[0], "elapsed")
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogFanOutFailure(tl, "comments", "123", errors.New("timeout"))
	LogRateLimit(tl, "media_likers", 30*time.Second)
	LogRequest(tl, "GET", "https://example.test", 503, time.Second)
	LogPipelineSummary(tl, "comments", "alice", 4, 1, time.Second)

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 2)
	assert.Equal(t, "comments", warns[0].Fields["stage"])
	assert.EqualError(t, warns[0].Error, "timeout")
	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessage("Pipeline finished"))
}

func TestTestLoggerSharesStore(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("k", "v").Info("from child")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "v", msgs[0].Fields["k"])
	assert.Contains(t, tl.String(), "[INFO] from child")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).WithError(errors.New("x")).Error("ignored")
	assert.NotNil(t, l.GetZerolog())
}
