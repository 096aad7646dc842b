package metric

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ThatForkyDev/membase/errors"
)

const (
	defaultAddr = ":9090"
	defaultPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Server exposes a MetricsRegistry over HTTP.
// Listen binds the address; Serve blocks until Stop.
type Server struct {
	addr     string
	path     string
	registry *MetricsRegistry

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	stopped  bool
}

// NewServer creates a metrics server. Empty addr and path fall back to
// ":9090" and "/metrics".
func NewServer(addr, path string, registry *MetricsRegistry) *Server {
	if addr == "" {
		addr = defaultAddr
	}
	if path == "" {
		path = defaultPath
	}
	return &Server{addr: addr, path: path, registry: registry}
}

// Handler serves the registry on the metrics path and a liveness check on /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry.PrometheusRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Listen binds the server address. Use ":0" to pick a free port; Address
// reports the bound one afterwards.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "Server", "Listen", "metrics registry not provided")
	}
	if s.listener != nil {
		return errors.WrapInvalid(fmt.Errorf("already listening on %s", s.listener.Addr()),
			"Server", "Listen", "bind metrics address")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Listen", fmt.Sprintf("bind %s", s.addr))
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: shutdownTimeout}
	s.stopped = false
	return nil
}

// Serve blocks serving metrics on the bound listener until Stop. It returns
// nil right away if Stop already ran.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, ln, stopped := s.server, s.listener, s.stopped
	s.mu.Unlock()

	if stopped {
		return nil
	}
	if srv == nil {
		return errors.WrapInvalid(fmt.Errorf("not listening"), "Server", "Serve", "serve metrics")
	}
	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapTransient(err, "Server", "Serve", "serve metrics")
	}
	return nil
}

// Start binds and serves. It blocks until Stop.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop shuts the server down, waiting up to five seconds for in-flight
// scrapes. The server can be started again afterwards.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.server, s.listener = nil, nil
	s.stopped = srv != nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	// Shutdown only closes listeners Serve has picked up.
	defer func() { _ = ln.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			_ = srv.Close()
			return errors.WrapTransient(errors.ErrShutdownTimeout, "Server", "Stop", "drain scrapes")
		}
		return errors.WrapTransient(err, "Server", "Stop", "shut down metrics server")
	}
	return nil
}

// Address returns the metrics URL, using the bound port once listening.
func (s *Server) Address() string {
	s.mu.Lock()
	host := s.addr
	if s.listener != nil {
		host = s.listener.Addr().String()
	}
	s.mu.Unlock()

	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return fmt.Sprintf("http://%s%s", host, s.path)
}
