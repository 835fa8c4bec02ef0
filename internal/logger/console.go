// Package logger provides logging implementations for reqcheck runs.
//
// Loggers record leveled messages plus the domain events of a comparison:
// one event per finished requirement row, progress ticks and the final
// summary. Implementations are thread-safe and satisfy comparator.Logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/reqcheck/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs comparison progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		now:         time.Now,
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}

	if w == os.Stdout || w == os.Stderr {
		// fatih/color already honours NO_COLOR and TTY detection
		return !color.NoColor
	}

	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}

	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, levelColor(level).Sprint(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogRow logs the verdict of one requirement at DEBUG level.
// Format: "[HH:MM:SS] TTZ-2.2.1: OK (explicit_ref, 1/1)"
func (cl *ConsoleLogger) LogRow(row models.ComparisonRow) {
	if cl.writer == nil || !cl.shouldLog("debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	status := row.Status
	if cl.colorOutput {
		status = statusColor(row.Status).Sprint(row.Status)
	}
	fmt.Fprintf(cl.writer, "[%s] %s: %s%s\n", cl.timestamp(), row.ReqID, status, rowDetail(row))
}

// rowDetail renders the parenthesised match type and coverage of a row
func rowDetail(row models.ComparisonRow) string {
	var parts []string
	if row.MatchType != "" {
		parts = append(parts, row.MatchType)
	}
	if row.Coverage != "" {
		parts = append(parts, row.Coverage)
	}
	if row.Error != "" {
		parts = append(parts, "error: "+row.Error)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func statusColor(status string) *color.Color {
	switch status {
	case models.StatusOK:
		return color.New(color.FgGreen)
	case models.StatusPartial:
		return color.New(color.FgYellow)
	case models.StatusFound:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgRed)
	}
}

// LogProgress logs how many requirements have been evaluated at INFO level.
// Format: "[HH:MM:SS] Progress: [=====     ] 5/10 (50%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.Update(done)
	fmt.Fprintf(cl.writer, "[%s] Progress: %s\n", cl.timestamp(), pb.Render())
}

// LogSummary logs the status counts of a finished comparison at INFO level.
func (cl *ConsoleLogger) LogSummary(s models.Summary, duration time.Duration) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	header := "=== Comparison Summary ==="
	ok := fmt.Sprintf("OK: %d", s.OK)
	partial := fmt.Sprintf("Partial: %d", s.Partial)
	notFound := fmt.Sprintf("Not found: %d", s.NotFound)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		ok = color.New(color.FgGreen).Sprint(ok)
		if s.Partial > 0 {
			partial = color.New(color.FgYellow).Sprint(partial)
		}
		if s.NotFound > 0 {
			notFound = color.New(color.FgRed).Sprint(notFound)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Requirements: %d\n", ts, s.Total)
	fmt.Fprintf(&b, "[%s] Found: %d\n", ts, s.Found)
	fmt.Fprintf(&b, "[%s] %s\n", ts, ok)
	fmt.Fprintf(&b, "[%s] %s\n", ts, partial)
	fmt.Fprintf(&b, "[%s] %s\n", ts, notFound)
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(duration))
	io.WriteString(cl.writer, b.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func (cl *ConsoleLogger) timestamp() string {
	return cl.now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "450ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string)                          {}
func (n *NoOpLogger) LogDebug(string)                          {}
func (n *NoOpLogger) LogInfo(string)                           {}
func (n *NoOpLogger) LogWarn(string)                           {}
func (n *NoOpLogger) LogError(string)                          {}
func (n *NoOpLogger) LogRow(models.ComparisonRow)              {}
func (n *NoOpLogger) LogProgress(int, int)                     {}
func (n *NoOpLogger) LogSummary(models.Summary, time.Duration) {}
