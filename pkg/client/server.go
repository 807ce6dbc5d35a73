// Package client implements the local verifier's HTTP surface: a page to
// hash a set of files into a root and a page to verify a file against a
// root and an authentication path. Verification itself never touches the
// Proof Store — it only needs the bytes, the path, and the expected root.
package client

import (
	"embed"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

//go:embed static/*.html
var staticFS embed.FS

// Server serves the hash/verify HTTP surface.
type Server struct {
	tempDir        string
	maxUploadBytes int64
	logger         *zap.Logger
	httpServer     *http.Server
}

// NewServer wires the hash/verify handlers. tempDir holds the files staged
// during a /verifyform request; it is created if missing.
func NewServer(addr, tempDir string, maxUploadBytes int64, logger *zap.Logger) (*Server, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("client: failed to prepare temp dir: %w", err)
	}

	s := &Server{
		tempDir:        tempDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/hash", s.handleHashPage)
	mux.HandleFunc("/hashform", s.handleHashForm)
	mux.HandleFunc("/verify", s.handleVerifyPage)
	mux.HandleFunc("/verifyform", s.handleVerifyForm)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s, nil
}

// Start launches the HTTP server in a background goroutine.
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("starting client HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("client HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() error {
	if err := s.httpServer.Close(); err != nil {
		return fmt.Errorf("client: failed to close HTTP server: %w", err)
	}
	return nil
}

// GetHandler returns the HTTP handler, for tests.
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) serveStatic(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := staticFS.ReadFile(name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	}
}

func (s *Server) handleHashPage(w http.ResponseWriter, r *http.Request) {
	s.serveStatic("static/hash.html")(w, r)
}

func (s *Server) handleVerifyPage(w http.ResponseWriter, r *http.Request) {
	s.serveStatic("static/verify.html")(w, r)
}
