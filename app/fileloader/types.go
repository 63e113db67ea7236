// Package fileloader locates and opens matrix files on disk. It detects the
// file type and compression, hashes file contents for cache keys, discovers
// matrix files in directory trees and hands out fresh read-only handles.
//
// Parsing lives in app/mtx; ReadMatrix glues the two together.
package fileloader

import (
	"errors"
	"fmt"
)

// FileType represents the type of matrix file being processed
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeMatrixMarket
)

// String returns the string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeMatrixMarket:
		return "MatrixMarket"
	default:
		return "Unknown"
	}
}

// ErrFileUnreadable is matched by every FileUnreadableError.
var ErrFileUnreadable = errors.New("matrix file unreadable")

// FileUnreadableError reports a file that could not be opened, stat'ed,
// decompressed or read. The load is aborted.
type FileUnreadableError struct {
	Path string
	Op   string // "open", "stat", "hash", "decompress", "read"
	Err  error
}

func (e *FileUnreadableError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileUnreadableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFileUnreadable.
func (e *FileUnreadableError) Is(target error) bool {
	return target == ErrFileUnreadable
}

func unreadable(path, op string, err error) error {
	return &FileUnreadableError{Path: path, Op: op, Err: err}
}
