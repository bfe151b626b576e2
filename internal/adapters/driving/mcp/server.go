package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Version is reported to MCP clients during initialisation.
const Version = "0.1.0"

const shutdownGrace = 5 * time.Second

var log = logger.For("mcp")

// Server exposes qagent sessions to MCP clients. Tools accept an optional
// session_id from open_session; without one they act on the default session.
type Server struct {
	ports     *Ports
	server    *mcp.Server
	sessionID string
	ownsID    bool

	mu     sync.Mutex
	opened map[string]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithSessionID uses an already open session as the default. The server
// will not close it.
func WithSessionID(id string) Option {
	return func(s *Server) {
		if id != "" {
			s.sessionID = id
		}
	}
}

// NewServer registers tools and resources over ports. Without
// WithSessionID it opens an anonymous session that Close discards.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, opened: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessionID == "" {
		sess, err := ports.Sessions.Open()
		if err != nil {
			return nil, fmt.Errorf("opening session: %w", err)
		}
		s.sessionID, s.ownsID = sess.ID, true
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: "qagent", Version: Version}, nil)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// SessionID returns the default session.
func (s *Server) SessionID() string {
	return s.sessionID
}

// Run serves over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Debug("Serving session %s over stdio", s.sessionID)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled, then drains open requests for up to five seconds.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.serveHTTP(ctx, ln)
}

func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.server
		}, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown: %v", err)
		}
	}()

	log.Debug("Serving session %s on %s", s.sessionID, ln.Addr())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

// Close discards the sessions opened through open_session, and the default
// session when NewServer opened it.
func (s *Server) Close() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.opened)+1)
	for id := range s.opened {
		ids = append(ids, id)
	}
	clear(s.opened)
	s.mu.Unlock()
	if s.ownsID {
		ids = append(ids, s.sessionID)
	}

	var errs []error
	for _, id := range ids {
		if err := s.ports.Sessions.Close(id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, fmt.Errorf("close session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Server) track(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[id] = struct{}{}
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.opened, id)
}

// isOpen reports whether id is the default session or one opened here.
func (s *Server) isOpen(id string) bool {
	if id == s.sessionID {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.opened[id]
	return ok
}

func (s *Server) session(id string) string {
	if id == "" {
		return s.sessionID
	}
	return id
}
