package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/relaywf/relay-go/internal/infrastructure/config"
	"github.com/relaywf/relay-go/internal/infrastructure/logging"
	"github.com/relaywf/relay-go/session"
	"github.com/relaywf/relay-go/workflow"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the workflow server.
type Deps struct {
	Config  config.ServerConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Tap     session.Tap     // optional: event journal
	Metrics session.Metrics // optional: dispatch telemetry
	Version string
}

// Server is the workflow endpoint router.
//
// It accepts websocket connections, selects the workflow registered on the
// request path, and runs one Session per connection. Many sessions may run
// concurrently against the same path, each fully independent.
type Server struct {
	cfg     config.ServerConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	tap     session.Tap
	metrics session.Metrics
	version string

	mu        sync.RWMutex
	workflows map[string]*workflow.Workflow

	server   *http.Server
	upgrader websocket.Upgrader
}

// New creates a new workflow server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		tap:       deps.Tap,
		metrics:   deps.Metrics,
		version:   deps.Version,
		workflows: make(map[string]*workflow.Workflow),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Register binds a workflow to a path. Exactly one workflow may be bound per
// path; rebinding is an error. Register all workflows before Start.
func (s *Server) Register(path string, wf *workflow.Workflow) error {
	if wf == nil {
		return fmt.Errorf("server: nil workflow for path %q", path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workflows[path]; exists {
		return fmt.Errorf("%w: %s", ErrPathRegistered, path)
	}
	s.workflows[path] = wf
	s.logger.Info("workflow registered", "path", path, "workflow", wf.Name())
	return nil
}

// lookup returns the workflow bound to path, if any.
func (s *Server) lookup(path string) (*workflow.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[path]
	return wf, ok
}

// buildRouter creates the HTTP router.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Health check for load balancers and probes
	r.Get("/healthz", s.handleHealth)

	// Every other path is a candidate workflow endpoint
	r.HandleFunc("/*", s.handleWorkflow)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","version":%q}`+"\n", s.version)
}

// handleWorkflow upgrades a connection and runs a session for the workflow
// bound to the request path. An unregistered path is refused before the
// upgrade, closing the connection immediately.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(r.URL.Path)
	if !ok {
		s.logger.Warn("ignoring connection for unregistered path", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}

	conn := newWSConn(raw, s.wsCfg)
	sess := session.New(conn, wf, session.Options{
		Logger:  s.logger,
		Tap:     s.tap,
		Metrics: s.metrics,
	})

	s.logger.Debug("connection accepted",
		"path", r.URL.Path, "workflow", wf.Name(), "session_id", sess.ID())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go conn.keepalive(ctx, sess.Done())

	sess.Run(ctx)
}

// Start runs the HTTP listener until the context is cancelled or the listener
// fails. It blocks; run it in a goroutine if the caller has other work.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLS.Enabled {
			s.logger.Info("workflow server listening", "addr", addr, "tls", true)
			errCh <- s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("workflow server listening", "addr", addr, "tls", false)
			errCh <- s.server.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		return s.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listener failed: %w", err)
	}
}

// Close gracefully shuts down the listener.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("workflow server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
