package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ViMaSter/sessionserver/hub"
	"github.com/ViMaSter/sessionserver/protocol"
	ws "github.com/ViMaSter/sessionserver/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the control surface around one relay instance: it owns the
// listener, the hub and the protocol handler.
type Server struct {
	hub     *hub.Hub
	handler *protocol.Handler

	httpServer *http.Server
	listener   net.Listener
	running    atomic.Bool
}

// Create binds a TCP listener on port and starts serving. Bind and setup
// errors are returned; once Create returns nil error the server is
// accepting connections. Port 0 picks a free port, see Addr.
func Create(port int) (*Server, error) {
	h := hub.New()
	s := &Server{
		hub:     h,
		handler: protocol.NewHandler(h),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: mux}
	s.running.Store(true)

	go func() {
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
		s.running.Store(false)
	}()

	slog.Info("listening", "addr", listener.Addr().String())
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Running reports whether the listener is still accepting connections.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Hub exposes the relay core, mainly for stats.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Shutdown stops the listener and closes every live websocket connection.
// http.Server.Shutdown does not touch hijacked connections, so the hub
// closes its registered transports afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.CloseAll()
	s.running.Store(false)
	return err
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade error", "error", err)
		return
	}

	connID := uuid.New().String()
	slog.Info("websocket connection opened", "connId", connID, "remote", conn.RemoteAddr().String())

	ws.NewConn(conn, s.hub, s.handler).Start()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, players := s.hub.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sessions": sessions, "players": players})
}
