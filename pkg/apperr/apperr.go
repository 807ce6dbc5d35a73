// Package apperr defines the sentinel error taxonomy shared by the proof
// store and the HTTP surfaces built on top of it, so callers can distinguish
// "no commitment" from "file not in commitment" with errors.Is.
package apperr

import "errors"

var (
	// ErrNoCommitment means the store has never been committed (no
	// tree_size key present) or its prior commitment was cleared.
	ErrNoCommitment = errors.New("apperr: no commitment")

	// ErrUnknownFile means a commitment exists but the requested filename
	// is not part of it.
	ErrUnknownFile = errors.New("apperr: unknown file")

	// ErrInputShape means the caller's request was malformed: a missing
	// filename, an empty file list, or a mismatched node/file count.
	ErrInputShape = errors.New("apperr: invalid input shape")

	// ErrClosed is returned by a store once it has been closed.
	ErrClosed = errors.New("apperr: store is closed")
)
