/*
Package monitoring provides Prometheus metrics for the playground server.

# Overview

Metrics cover HTTP traffic, the sandbox host (runs, live contexts,
teardowns by reason, context messages by kind and outcome) and WebSocket
clients. *Metrics implements sandbox.Observer, so the host reports into it
directly.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))
	host := sandbox.NewHost(store, cfg, sandbox.WithObserver(metrics))

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
