package client

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/merkleproof/fileserver/pkg/hash"
	"github.com/merkleproof/fileserver/pkg/merkle"
)

// hashResponse is the clean JSON wire format for a computed root.
type hashResponse struct {
	Root hash.Hash `json:"root"`
}

// verifyRequest is what /verifyform expects for the "root" and "proof"
// form fields: a hex root and a JSON-encoded authentication path.
type verifyRequest struct {
	Root  hash.Hash    `json:"root"`
	Proof merkle.Proof `json:"proof"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// handleHashForm hashes every "file" part in the multipart form as a leaf
// and returns the Merkle root over them, so a user can compute the root a
// server should have committed to before ever contacting it.
func (s *Server) handleHashForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("upload too large or malformed: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileHeaders := r.MultipartForm.File["file"]
	if len(fileHeaders) == 0 {
		http.Error(w, "no file in upload", http.StatusBadRequest)
		return
	}

	leaves := make([]hash.Hash, len(fileHeaders))
	for i, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "failed to read uploaded file", http.StatusInternalServerError)
			return
		}
		h, err := hash.HashLeafStream(f)
		_ = f.Close()
		if err != nil {
			http.Error(w, "failed to hash uploaded file", http.StatusInternalServerError)
			return
		}
		leaves[i] = h
	}

	tree, err := merkle.BuildTreeFromLeafHashes(leaves)
	if err != nil {
		http.Error(w, "failed to build tree", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(hashResponse{Root: tree.Root()})
}

// handleVerifyForm verifies a single uploaded file against a caller-supplied
// root and authentication path. The file is staged under a unique temp name
// and removed once hashed.
func (s *Server) handleVerifyForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("upload too large or malformed: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileHeaders := r.MultipartForm.File["file"]
	if len(fileHeaders) != 1 {
		http.Error(w, "expected exactly one file", http.StatusBadRequest)
		return
	}

	rootHex := r.MultipartForm.Value["root"]
	proofJSON := r.MultipartForm.Value["proof"]
	if len(rootHex) != 1 || len(proofJSON) != 1 {
		http.Error(w, "missing root or proof field", http.StatusBadRequest)
		return
	}

	var req verifyRequest
	if err := req.Root.UnmarshalJSON([]byte(`"` + rootHex[0] + `"`)); err != nil {
		http.Error(w, "malformed root", http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal([]byte(proofJSON[0]), &req.Proof); err != nil {
		http.Error(w, "malformed proof", http.StatusBadRequest)
		return
	}

	stagedPath, err := s.stageUpload(fileHeaders[0])
	if err != nil {
		http.Error(w, "failed to stage uploaded file", http.StatusInternalServerError)
		s.logger.Sugar().Errorw("stage upload", "error", err)
		return
	}
	defer os.Remove(stagedPath)

	f, err := os.Open(stagedPath)
	if err != nil {
		http.Error(w, "failed to read staged file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	ok, err := merkle.VerifyProofStream(f, req.Proof, req.Root)
	if err != nil {
		http.Error(w, "failed to verify", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(verifyResponse{Verified: ok})
}

func (s *Server) stageUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	stagedPath := filepath.Join(s.tempDir, uuid.NewString())
	dst, err := os.Create(stagedPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(stagedPath)
		return "", err
	}
	return stagedPath, nil
}
