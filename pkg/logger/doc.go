// Package logger builds configured log/slog loggers with consistent attribute
// helpers for the service.
//
// Production defaults are JSON output at INFO level; development mode switches
// to human-readable text at DEBUG level:
//
//	log := logger.New(logger.WithDevelopment("storekeep"))
//	log.Info("server started", slog.String("addr", ":8080"))
//
// The attribute helpers (Error, UserID, FileID, Component) keep log keys
// uniform across packages so records can be correlated in aggregation systems.
package logger
