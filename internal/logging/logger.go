package logging

import (
	"io"
	"log/slog"
	"os"

	"gorm.io/gorm"
)

var stdout io.Writer = os.Stdout

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(stdoutHandler()))
}

// AttachDB keeps stdout logging and also persists ERROR+ records to db.
// Callers must Stop the returned handler on shutdown.
func AttachDB(db *gorm.DB) *DBHandler {
	h := NewDBHandler(db)
	slog.SetDefault(slog.New(NewMultiHandler(stdoutHandler(), h)))
	return h
}

func stdoutHandler() slog.Handler {
	return slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
}
