// Package httpserver runs an http.Server bound to a context and exposes
// liveness and readiness handlers.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	r.Get("/healthz", httpserver.Liveness())
//	r.Get("/readyz", httpserver.Readiness(log, 2*time.Second, map[string]httpserver.CheckFunc{
//		"postgres": pg.Healthcheck(pool),
//	}))
//	return srv.Run(ctx, r)
//
// Cancelling the context passed to Run triggers a graceful shutdown bounded
// by Config.ShutdownTimeout.
package httpserver
