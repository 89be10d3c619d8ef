// Package server provides the HTTP API of the pantry daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alexedwards/flow"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/pkg/daemon"
)

// Agent is the part of *agent.Agent the server drives.
type Agent interface {
	SendAs(ctx context.Context, token registry.Token, req agent.Request) (agent.Response, error)
	Subscribe(topic registry.Topic) *registry.Subscription[agent.Response]
	Unsubscribe(token registry.Token)
}

// Session is the part of *session.Machine the server drives.
type Session interface {
	Current() session.State
	Send(ctx context.Context, req session.Request) (session.State, error)
	Settle(ctx context.Context) (session.State, error)
	Subscribe() *registry.Subscription[session.State]
	Unsubscribe(token registry.Token)
}

const reloadTopic registry.Topic = "config"

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	agent         Agent
	session       Session
	reloads       *registry.Registry[string]
	runningConfig *daemon.RunningConfig
	upgrader      websocket.Upgrader
}

// New creates a new Server instance.
func New(a Agent, sess Session, logger *logrus.Entry) *Server {
	s := &Server{
		logger:  logger,
		agent:   a,
		session: sess,
		reloads: registry.New[string](8, logger),
	}
	s.server = &http.Server{
		Handler: h2c.NewHandler(s.Handler(), &http2.Server{}),
	}
	return s
}

// SetRunningConfig sets the configuration reported by /api/config.
func (s *Server) SetRunningConfig(cfg *daemon.RunningConfig) {
	s.runningConfig = cfg
}

// BroadcastConfigReload tells every stream that a config file changed.
func (s *Server) BroadcastConfigReload(file string) {
	n := s.reloads.Broadcast(0, func(registry.Topic) (string, bool) { return file, true })
	s.logger.WithFields(logrus.Fields{"file": file, "streams": n}).Info("Config reload broadcast")
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := flow.New()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}, "GET")
	mux.HandleFunc("/api/config", s.handleGetConfig, "GET")

	mux.HandleFunc("/api/requests", s.handleEnvelope, "POST")
	mux.HandleFunc("/api/inventories", s.handleListInventories, "GET")
	mux.HandleFunc("/api/inventories", s.handleCreateInventory, "POST")
	mux.HandleFunc("/api/inventories/:inventory", s.handleGetInventory, "GET")
	mux.HandleFunc("/api/inventories/:inventory", s.handleUpdateInventory, "PUT")
	mux.HandleFunc("/api/inventories/:inventory", s.handleDeleteInventory, "DELETE")
	mux.HandleFunc("/api/inventories/:inventory/items", s.handleCreateItem, "POST")
	mux.HandleFunc("/api/inventories/:inventory/items/:item", s.handleGetItem, "GET")
	mux.HandleFunc("/api/inventories/:inventory/items/:item", s.handleUpdateItem, "PUT")
	mux.HandleFunc("/api/inventories/:inventory/items/:item", s.handleDeleteItem, "DELETE")
	mux.HandleFunc("/api/inventories/:inventory/items/:item/units", s.handleCreateUnit, "POST")
	mux.HandleFunc("/api/debug/inventory", s.handleDebugInventory, "POST")
	mux.HandleFunc("/api/debug/data", s.handleDeleteAll, "DELETE")

	mux.HandleFunc("/api/session", s.handleGetSession, "GET")
	mux.HandleFunc("/api/session/:op", s.handleSessionOp, "POST")

	mux.HandleFunc("/api/stream", s.handleStream, "GET")
	mux.HandleFunc("/api/ws", s.handleWebSocket, "GET")

	return mux
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and ends open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.reloads.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		writeError(w, errors.New(errors.ErrCodeInternal, "config not initialized"), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.runningConfig)
}

// subscriptionToken reads the caller's stream token. Anything unparsable
// is treated as a one-shot request.
func subscriptionToken(r *http.Request) registry.Token {
	v := r.Header.Get(daemon.SubscriptionHeader)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return registry.Token(n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a PantryError document.
func writeError(w http.ResponseWriter, err error, status int) {
	pe, ok := errors.As(err)
	if !ok {
		pe = errors.Wrap(err, errors.ErrCodeInternal, err.Error())
	}
	if status == 0 {
		status = statusForCode(pe.Code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(pe.ToJSON()))
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInventoryNotFound, errors.ErrCodeItemNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeAuthFailed:
		return http.StatusBadGateway
	case errors.ErrCodeDaemonNotRunning:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
