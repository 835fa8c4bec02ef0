package logger

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/reqcheck/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC)
}

func newTestConsole(buf *bytes.Buffer, level string) *ConsoleLogger {
	cl := NewConsoleLogger(buf, level)
	cl.now = fixedClock
	return cl
}

func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "DEBUG")
		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "debug" {
			t.Errorf("expected log level %q, got %q", "debug", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("buffers never receive color")
		}
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		logger := NewConsoleLogger(&bytes.Buffer{}, "verbose")
		if logger.logLevel != "info" {
			t.Errorf("expected info, got %q", logger.logLevel)
		}
	})

	t.Run("nil writer discards", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "trace")
		logger.LogInfo("dropped")
		logger.LogRow(models.ComparisonRow{ReqID: "TTZ-1"})
		logger.LogProgress(1, 2)
		logger.LogSummary(models.Summary{}, time.Second)
	})
}

func TestLogLevelFiltering(t *testing.T) {
	levels := []string{"trace", "debug", "info", "warn", "error"}

	for ci, configured := range levels {
		for mi, message := range levels {
			name := fmt.Sprintf("%s logger, %s message", configured, message)
			t.Run(name, func(t *testing.T) {
				buf := &bytes.Buffer{}
				logger := newTestConsole(buf, configured)

				switch message {
				case "trace":
					logger.LogTrace("msg")
				case "debug":
					logger.LogDebug("msg")
				case "info":
					logger.LogInfo("msg")
				case "warn":
					logger.LogWarn("msg")
				case "error":
					logger.LogError("msg")
				}

				shouldAppear := mi >= ci
				if got := buf.Len() > 0; got != shouldAppear {
					t.Errorf("output present = %v, want %v (%q)", got, shouldAppear, buf.String())
				}
			})
		}
	}
}

func TestLogMessageFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestConsole(buf, "info")

	logger.LogWarn("ТТЗ: extracted 12 characters")

	want := "[09:30:15] [WARN] ТТЗ: extracted 12 characters\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogRow(t *testing.T) {
	tests := []struct {
		name     string
		row      models.ComparisonRow
		expected string
	}{
		{
			name:     "ok row",
			row:      models.ComparisonRow{ReqID: "TTZ-2.2.1", Status: models.StatusOK, MatchType: "explicit_ref", Coverage: "1/1"},
			expected: "[09:30:15] TTZ-2.2.1: OK (explicit_ref, 1/1)\n",
		},
		{
			name:     "not found row",
			row:      models.ComparisonRow{ReqID: "TTZ-3.1", Status: models.StatusNotFound},
			expected: "[09:30:15] TTZ-3.1: NOT_FOUND\n",
		},
		{
			name:     "failed row",
			row:      models.ComparisonRow{ReqID: "TTZ-3.2", Status: models.StatusNotFound, Error: "boom"},
			expected: "[09:30:15] TTZ-3.2: NOT_FOUND (error: boom)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := newTestConsole(buf, "debug")
			logger.LogRow(tt.row)
			if buf.String() != tt.expected {
				t.Errorf("got %q, want %q", buf.String(), tt.expected)
			}
		})
	}

	t.Run("hidden at info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newTestConsole(buf, "info").LogRow(tests[0].row)
		if buf.Len() != 0 {
			t.Errorf("rows are debug output, got %q", buf.String())
		}
	})
}

func TestLogProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestConsole(buf, "info")

	logger.LogProgress(5, 10)

	want := "[09:30:15] Progress: [=====     ] 5/10 (50%)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestConsole(buf, "info")

	logger.LogSummary(models.Summary{Total: 5, Found: 4, OK: 2, Partial: 1, NotFound: 1}, 1500*time.Millisecond)

	out := buf.String()
	for _, want := range []string{
		"=== Comparison Summary ===",
		"Requirements: 5",
		"Found: 4",
		"OK: 2",
		"Partial: 1",
		"Not found: 1",
		"Duration: 1s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	newTestConsole(buf, "warn").LogSummary(models.Summary{Total: 1}, time.Second)
	if buf.Len() != 0 {
		t.Errorf("summary should be filtered at warn, got %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{450 * time.Millisecond, "450ms"},
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
		{3 * time.Hour, "3h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestConsoleLoggerConcurrentWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestConsole(buf, "debug")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.LogRow(models.ComparisonRow{ReqID: fmt.Sprintf("TTZ-%d", i), Status: models.StatusFound})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, ": FOUND") {
			t.Errorf("interleaved line %q", line)
		}
	}
}
