// Package httpserver wraps net/http with graceful shutdown, environment-driven
// configuration and a readiness handler for dependency checks.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
//
// Run blocks until the context is cancelled, SIGINT/SIGTERM is received or the
// listener fails, then shuts the server down within the configured timeout.
package httpserver
