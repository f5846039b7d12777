package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileLogger is a zerolog logger backed by an append-only file.
type FileLogger struct {
	zerolog.Logger
	file *os.File
}

// NewFileLogger opens path for appending, creating parent directories, and
// returns a JSON logger at the given level. An empty path yields a no-op
// logger.
func NewFileLogger(path string, level zerolog.Level) (*FileLogger, error) {
	if path == "" {
		return &FileLogger{Logger: zerolog.Nop()}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &FileLogger{
		Logger: newLogger(f, level),
		file:   f,
	}, nil
}

// NewFileLoggerForProject logs to .genesis/logs/orchestrator.log under
// root. It falls back to a no-op logger if the file cannot be opened.
func NewFileLoggerForProject(root string, level zerolog.Level) *FileLogger {
	l, err := NewFileLogger(filepath.Join(root, ".genesis", "logs", "orchestrator.log"), level)
	if err != nil {
		return &FileLogger{Logger: zerolog.Nop()}
	}
	return l
}

// Close closes the underlying file.
func (l *FileLogger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "orchestrator").Logger()
}
