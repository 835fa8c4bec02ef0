package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/reqcheck/internal/models"
)

// DefaultLogDir is where run logs go when no directory is configured
const DefaultLogDir = ".reqcheck/logs"

// FileLogger logs comparison events to a timestamped per-run file and
// maintains a latest.log symlink pointing to the most recent run.
// Row events are written with their evidence so a run can be audited later.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to .reqcheck/logs/ at level info.
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(DefaultLogDir, "info")
}

// NewFileLoggerWithDir creates a FileLogger with a custom log directory.
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a FileLogger with a custom log directory and log level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log; a second run within the same second appends
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== reqcheck Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

// LogRow records one verdict with its evidence and diff at DEBUG level.
func (fl *FileLogger) LogRow(row models.ComparisonRow) {
	if !fl.shouldLog("debug") {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [ROW] %s: %s%s\n", time.Now().Format("15:04:05"), row.ReqID, row.Status, rowDetail(row))
	if row.Evidence != "" {
		b.WriteString("  Evidence:\n")
		for _, line := range strings.Split(row.Evidence, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	if row.Diff != "" {
		b.WriteString("  Diff:\n")
		for _, line := range strings.Split(row.Diff, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	fl.writeRunLog(b.String())
}

// LogProgress is a no-op: progress bars are console-only.
func (fl *FileLogger) LogProgress(done, total int) {}

// LogSummary records final statistics at INFO level.
func (fl *FileLogger) LogSummary(s models.Summary, duration time.Duration) {
	if !fl.shouldLog("info") {
		return
	}

	ts := time.Now().Format("15:04:05")
	status := "COMPLETE"
	switch {
	case s.Total > 0 && s.NotFound == s.Total:
		status = "NO EVIDENCE"
	case s.Partial > 0 || s.NotFound > 0:
		status = "GAPS"
	}

	message := fmt.Sprintf(
		"\n[%s] === COMPARISON SUMMARY ===\n"+
			"[%s] Requirements: %d\n"+
			"[%s] Found:        %d\n"+
			"[%s] OK:           %d\n"+
			"[%s] Partial:      %d\n"+
			"[%s] Not found:    %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s (%d/%d requirements found)\n",
		ts,
		ts, s.Total,
		ts, s.Found,
		ts, s.OK,
		ts, s.Partial,
		ts, s.NotFound,
		ts, duration.Seconds(),
		ts, status, s.Found, s.Total,
	)
	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
