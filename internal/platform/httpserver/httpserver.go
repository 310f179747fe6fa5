// Package httpserver builds the engine's HTTP server with the timeouts the
// compliance API needs.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second

	// Manual purge runs stream through this server too; a whole run can
	// legitimately take minutes, so no WriteTimeout is set and slow-client
	// protection rests on ReadHeaderTimeout plus the purge batch timeout.
	idleTimeout = 120 * time.Second
)

// New builds the HTTP server for the given handler.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
