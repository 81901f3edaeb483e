package fixture

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// ServerConfig holds fixture server options.
type ServerConfig struct {
	Addr         string        // Listen address (e.g., ":8080" or ":0" for random port)
	Source       string        // Video source URL embedded in the fixture; empty means DefaultSource
	SamplePath   string        // Optional local MP4 served at /sample.mp4; overrides Source
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout
}

// DefaultServerConfig returns a configuration suitable for testing.
// Uses ":0" to bind to a random available port.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server serves the fixture page over HTTP. It is importable so tests can
// start and stop it programmatically without running main().
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.Mutex
	running    bool
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg ServerConfig) (*Server, error) {
	src := cfg.Source
	if cfg.SamplePath != "" {
		// Serve the local file ourselves so the page never leaves localhost.
		src = "/sample.mp4"
	}

	doc, err := Build(src)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(doc)
	})
	if cfg.SamplePath != "" {
		samplePath := cfg.SamplePath
		mux.HandleFunc("/sample.mp4", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "video/mp4")
			http.ServeFile(w, r, samplePath)
		})
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer: httpServer,
	}, nil
}

// Start begins listening and serving HTTP requests.
// Returns the actual address the server is listening on (useful when port is 0).
// This method is non-blocking - the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = ln
	s.addr = ln.Addr().String()
	s.running = true

	// Serve returns ErrServerClosed after Shutdown; nothing to act on
	// either way from a background goroutine.
	go func() {
		_ = s.httpServer.Serve(ln)
	}()

	return s.addr, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
