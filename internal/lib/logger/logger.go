package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	logFile = "orderflow.log"
)

func SetupLogger(env, logPath string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envLocal:
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		logger = slog.New(slog.NewJSONHandler(output(logPath), &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		logger = slog.New(slog.NewJSONHandler(output(logPath), &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return logger
}

// output writes to stdout and, when the directory is usable, to a log file as well.
func output(logPath string) io.Writer {
	if logPath == "" {
		return os.Stdout
	}
	f, err := os.OpenFile(filepath.Join(logPath, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("log file: %v; logging to stdout only", err)
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, f)
}
