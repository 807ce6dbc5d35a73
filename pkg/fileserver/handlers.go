package fileserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/merkleproof/fileserver/pkg/apperr"
	"github.com/merkleproof/fileserver/pkg/merkle"
)

// serveStatic returns a handler that writes an embedded HTML asset,
// standing in for the static mode-selection pages the core design treats as
// an external collaborator.
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

// handleUpload serves the upload form on GET and, on POST, saves every
// uploaded file, rebuilds the commitment over the full files directory and
// replaces the Proof Store's commitment with it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.serveStatic("static/upload.html")(w, r)
	case http.MethodPost:
		s.handleUploadPost(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUploadPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("upload too large or malformed: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		http.Error(w, "no files in upload", http.StatusBadRequest)
		return
	}

	// Each upload completely replaces the prior commitment: clear whatever
	// the files directory holds from an earlier upload before saving this
	// one, so recommit never sees a union of old and new payloads.
	if err := os.RemoveAll(s.filesDir); err != nil {
		http.Error(w, "failed to clear files directory", http.StatusInternalServerError)
		s.logger.Sugar().Errorw("clear files dir", "error", err)
		return
	}
	if err := os.MkdirAll(s.filesDir, 0o755); err != nil {
		http.Error(w, "failed to prepare files directory", http.StatusInternalServerError)
		s.logger.Sugar().Errorw("mkdir files dir", "error", err)
		return
	}

	for _, fh := range fileHeaders {
		if err := s.saveUploadedFile(fh); err != nil {
			http.Error(w, fmt.Sprintf("failed to save %q: %v", fh.Filename, err), http.StatusInternalServerError)
			s.logger.Sugar().Errorw("save uploaded file", "filename", fh.Filename, "error", err)
			return
		}
	}

	if err := s.recommit(); err != nil {
		http.Error(w, "failed to commit uploaded files", http.StatusInternalServerError)
		s.logger.Sugar().Errorw("recommit after upload", "error", err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) saveUploadedFile(fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.filesDir, filepath.Base(fh.Filename)))
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// recommit rebuilds the Merkle tree over the whole files directory and
// replaces the committed proof state. It rebuilds the whole folder rather
// than appending incrementally, since a commitment is always a full
// snapshot.
func (s *Server) recommit() error {
	names, err := listDir(s.filesDir)
	if err != nil {
		return fmt.Errorf("listing files directory: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("files directory is empty after upload")
	}

	closers := make([]io.Closer, 0, len(names))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ioReaders := make([]io.Reader, len(names))
	for i, name := range names {
		f, err := os.Open(filepath.Join(s.filesDir, name))
		if err != nil {
			return fmt.Errorf("opening %q: %w", name, err)
		}
		closers = append(closers, f)
		ioReaders[i] = f
	}

	tree, err := merkle.BuildTreeStreaming(ioReaders)
	if err != nil {
		return fmt.Errorf("building tree: %w", err)
	}

	return s.store.Commit(names, tree)
}

// handleDownload streams a file back with its authentication path and the
// committed root attached as headers.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filename := r.URL.Query().Get("file")
	if filename == "" {
		filename = strings.TrimPrefix(r.URL.Path, "/download/")
	}
	if filename == "" || strings.Contains(filename, "/") {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}

	proof, err := s.store.Proof(filename)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	root, err := s.store.Root()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	path := filepath.Join(s.filesDir, filename)
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	proofJSON, err := json.Marshal(proof)
	if err != nil {
		http.Error(w, "failed to encode proof", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Merkle-Proof", string(proofJSON))
	w.Header().Set("X-Merkle-Root", root.String())
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, f)
}

// handleListFiles returns the filenames currently committed, read straight
// from the files directory.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := listDir(s.filesDir)
	if err != nil {
		if os.IsNotExist(err) {
			names = []string{}
		} else {
			http.Error(w, "failed to list files", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(names)
}

// handleHealthz reports whether the Proof Store backend is reachable.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		http.Error(w, fmt.Sprintf("unhealthy: %v", err), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNoCommitment):
		http.Error(w, "no commitment yet", http.StatusNotFound)
	case errors.Is(err, apperr.ErrUnknownFile):
		http.Error(w, "unknown file", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
		s.logger.Sugar().Errorw("store error", "error", err)
	}
}
