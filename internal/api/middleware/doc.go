// Package middleware provides the HTTP middleware of the playground API.
//
//   - CORS: cross-origin access for the book frontend (gin-contrib/cors)
//   - RateLimit: per-IP token buckets with idle eviction (x/time/rate)
//   - GlobalRateLimit: one bucket shared by all clients
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
