package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/workbench/internal/config"
)

// FileName is the diagnostic log inside .workbench/logs.
const FileName = "workbench.log"

// Logger appends timestamped lines to .workbench/logs/workbench.log so users
// can inspect failures after the dashboard exits. A nil *Logger is valid and
// discards everything.
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

// Options tunes New.
type Options struct {
	Verbose bool
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir string, opts Options) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.WorkbenchDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, FileName)
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.Sampling = nil
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{zap: z, sugar: z.Sugar()}, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	z := zap.NewNop()
	return &Logger{zap: z, sugar: z.Sugar()}
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	if l == nil || l.zap == nil {
		return nil
	}
	err := l.zap.Sync()
	if err != nil && isStdSyncError(err) {
		return nil
	}
	return err
}

// Printf writes a single info line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

// Debugf writes a line only when verbose logging is on.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Errorf writes an error line.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying structured fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	if l == nil || l.sugar == nil {
		return l
	}
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{zap: sugar.Desugar(), sugar: sugar}
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.zap == nil {
		return zap.NewNop()
	}
	return l.zap
}

// Syncing a terminal-backed file descriptor fails on some platforms.
func isStdSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
