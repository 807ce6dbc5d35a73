// Package fileserver implements the HTTP surface that collects a directory
// of files into a Merkle commitment and serves them back with an
// authentication path attached. The multipart parsing, filesystem storage
// and static mode-selection pages are external collaborators per the core
// design — this package exists to give them a concrete, runnable home.
package fileserver

import (
	"embed"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/merkleproof/fileserver/pkg/store"
)

//go:embed static/*.html
var staticFS embed.FS

// Server serves the upload/download/list HTTP surface backed by a
// store.Store commitment and a local files directory.
type Server struct {
	filesDir       string
	maxUploadBytes int64
	store          store.Store
	logger         *zap.Logger
	httpServer     *http.Server
}

// NewServer wires the HTTP handlers for the given files directory and
// Proof Store.
func NewServer(addr, filesDir string, maxUploadBytes int64, st store.Store, logger *zap.Logger) *Server {
	s := &Server{
		filesDir:       filesDir,
		maxUploadBytes: maxUploadBytes,
		store:          st,
		logger:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/download/static", s.serveStatic("static/download.html"))
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/files", s.handleListFiles)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/list", s.serveStatic("static/list.html"))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Start launches the HTTP server in a background goroutine.
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("starting fileserver HTTP server", "addr", s.httpServer.Addr, "files_dir", s.filesDir)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("fileserver HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() error {
	if err := s.httpServer.Close(); err != nil {
		return fmt.Errorf("fileserver: failed to close HTTP server: %w", err)
	}
	return nil
}

// GetHandler returns the HTTP handler, for tests.
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
