// Package bridge serves the companion to extension pages and other local
// clients: a websocket carrying message envelopes plus a small HTTP API for
// settings.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/pterm/pterm"
)

// DefaultAddr is the loopback address the bridge listens on.
const DefaultAddr = "127.0.0.1:7465"

// Config holds server configuration.
type Config struct {
	Addr string
	// AllowedOrigins for CORS and websocket upgrades. Extension origins
	// look like chrome-extension://<id>.
	AllowedOrigins []string
	AllowAll       bool
}

// Server relays messages between clients and the bus.
type Server struct {
	cfg      Config
	bus      *messaging.Bus
	store    settings.Store
	logger   *pterm.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	mu         sync.Mutex
	clients    map[*client]struct{}
	httpServer *http.Server
	unsub      func()
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// New builds a server. Progress broadcasts on bus are pushed to every
// connected websocket client.
func New(cfg Config, bus *messaging.Bus, store settings.Store, logger *pterm.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"chrome-extension://*", "http://localhost:*", "http://127.0.0.1:*"}
	}
	if logger == nil {
		logger = &pterm.DefaultLogger
	}
	s := &Server{
		cfg:     cfg,
		bus:     bus,
		store:   store,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.buildRouter()
	s.unsub = bus.Subscribe(messaging.ActionExportProgress, func(m messaging.Message) { s.Broadcast(m) })
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.Clients()})
	})
	r.Get("/ws", s.handleWS)
	r.Post("/messages", s.handleMessage)
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	return r
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.router }

// Clients counts connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast writes msg to every websocket client. Clients that cannot be
// written to are dropped.
func (s *Server) Broadcast(msg messaging.Message) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			s.logger.Debug("dropping websocket client", s.logger.Args("error", err))
			s.drop(c)
		}
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes client connections and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unsub()
	s.mu.Lock()
	srv := s.httpServer
	for c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, c)
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.AllowAll {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if matchOrigin(allowed, origin) {
			return true
		}
	}
	return false
}

// matchOrigin supports a single "*" wildcard, as go-chi/cors does.
func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			prefix, suffix := pattern[:i], pattern[i+1:]
			return len(origin) >= len(prefix)+len(suffix) &&
				origin[:len(prefix)] == prefix && origin[len(origin)-len(suffix):] == suffix
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
