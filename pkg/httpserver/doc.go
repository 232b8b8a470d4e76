// Package httpserver runs the tenantd HTTP server with graceful shutdown and
// provides liveness and readiness handlers.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	router.Get("/healthz", httpserver.Liveness())
//	router.Get("/readyz", httpserver.Readiness(log,
//		httpserver.Check{Name: "postgres", Check: pg.Healthcheck(pool)},
//		httpserver.Check{Name: "redis", Check: redis.Healthcheck(client)},
//	))
//	return srv.Run(ctx, router)
package httpserver
