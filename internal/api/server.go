package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/zwave-core/internal/infrastructure/config"
	"github.com/nerrad567/zwave-core/internal/infrastructure/logging"
	"github.com/nerrad567/zwave-core/internal/nodestore"
	"github.com/nerrad567/zwave-core/internal/process"
	"github.com/nerrad567/zwave-core/internal/zwave"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// NodeHistory serves persisted per-node history. *nodestore.Store satisfies it.
type NodeHistory interface {
	Get(ctx context.Context, homeID uint32, nodeID uint8) (nodestore.NodeRecord, error)
	List(ctx context.Context, homeID uint32) ([]nodestore.NodeRecord, error)
}

// ProcessSource reports on a supervised driver daemon.
// *process.Supervisor satisfies it.
type ProcessSource interface {
	Stats() process.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Core     *zwave.Core

	// History is optional; without it the history routes answer 404.
	History NodeHistory

	// Driver is set when the driver daemon is supervised.
	Driver ProcessSource

	// Hub, if set, is used instead of creating one. The same hub must be
	// registered as a deliverer on Core for events to reach clients.
	Hub *Hub

	Version string
}

// Server is the HTTP API server for the Z-Wave core.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	core      *zwave.Core
	history   NodeHistory
	driver    ProcessSource
	version   string
	startTime time.Time
	tickets   *ticketStore

	server *http.Server
	addr   string
	hub    *Hub
	ownHub bool
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Core == nil {
		return nil, fmt.Errorf("core is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		core:      deps.Core,
		history:   deps.History,
		driver:    deps.Driver,
		version:   deps.Version,
		startTime: time.Now(),
		tickets:   newTicketStore(),
		hub:       deps.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
		s.ownHub = true
	}
	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine.
// The ctx bounds the hub and ticket cleanup; Close stops the listener.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("binding API listener: %w", err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.ownHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)

	if s.secCfg.JWT.Secret == "" {
		s.logger.Warn("API authentication disabled: security.jwt.secret is empty")
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.addr = listener.Addr().String()

	srv := s.server
	go func() {
		var serveErr error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.addr, "cert", s.cfg.TLS.CertFile)
			serveErr = srv.ServeTLS(listener, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.addr)
			serveErr = srv.Serve(listener)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", serveErr)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests. Safe to call when not started.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	s.server = nil
	s.cancel = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
