// Package server exposes the bot's operational HTTP endpoints:
//
//	GET /health        liveness, always 200 with uptime and live conversations
//	GET /health/ready  200 once the store answers a ping, 503 otherwise
//	GET /metrics       Prometheus exposition, when a metrics handler is given
//
// The listener is meant for a private address; it has no authentication.
package server
