package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// StatusSource is what the health server reports on. Satisfied by *Engine.
type StatusSource interface {
	Connected() bool
	Snapshot() Snapshot
}

// HealthServer provides HTTP health and stats endpoints for the node.
// The server runs in a background goroutine and can be gracefully shut down.
type HealthServer struct {
	server *http.Server
	source StatusSource
}

// HealthResponse represents the JSON response from the /healthz endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewHealthServer creates a health server listening on all interfaces at port.
func NewHealthServer(source StatusSource, port int) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		source: source,
	}

	mux.HandleFunc("/healthz", hs.handleHealthz)
	mux.HandleFunc("/statsz", hs.handleStatsz)

	return hs
}

// Handler returns the HTTP handler, for tests.
func (hs *HealthServer) Handler() http.Handler {
	return hs.server.Handler
}

// Start binds the listener and serves in a background goroutine.
// Returns an error if the port cannot be bound.
func (hs *HealthServer) Start() error {
	ln, err := net.Listen("tcp", hs.server.Addr)
	if err != nil {
		return fmt.Errorf("health server listen on %s: %w", hs.server.Addr, err)
	}

	go func() {
		log.Printf("[DEBUG] Health server starting on %s", hs.server.Addr)
		if err := hs.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Health server error: %v", err)
		}
		log.Printf("[DEBUG] Health server stopped")
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server, bounded by ctx.
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	log.Printf("[DEBUG] Shutting down health server...")
	return hs.server.Shutdown(ctx)
}

// handleHealthz returns 200 while the link is up and 503 otherwise.
// Actuator tasks keep running while disconnected; the status reflects the
// node's ability to receive commands.
func (hs *HealthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "healthy"}
	statusCode := http.StatusOK

	if !hs.source.Connected() {
		response = HealthResponse{Status: "unhealthy", Error: "link not connected"}
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, response)
}

func (hs *HealthServer) handleStatsz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hs.source.Snapshot())
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] Failed to encode response: %v", err)
	}
}
