package fileloader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RawMatrixFile is a handle on a matrix file selected by the user. It never
// holds an open descriptor: Open and OpenDecoded give every caller its own,
// so preview and upload can read the same file concurrently. Nothing writes
// to the file.
type RawMatrixFile struct {
	Path        string          `json:"path"`
	Name        string          `json:"name"`
	Size        int64           `json:"size"`
	ModTime     time.Time       `json:"modTime"`
	Hash        string          `json:"hash"`
	FileType    FileType        `json:"-"`
	Compression CompressionType `json:"-"`
}

// NewRawMatrixFile stats and hashes path. Directories and unreadable files
// are rejected with a FileUnreadableError.
func NewRawMatrixFile(path string) (*RawMatrixFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, unreadable(path, "resolve", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, unreadable(abs, "stat", err)
	}
	if info.IsDir() {
		return nil, unreadable(abs, "open", errors.New("is a directory"))
	}

	hash, err := HashFile(abs)
	if err != nil {
		return nil, err
	}
	fileType, compression := DetectFileTypeAndCompression(abs)

	return &RawMatrixFile{
		Path:        abs,
		Name:        filepath.Base(abs),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Hash:        hash,
		FileType:    fileType,
		Compression: compression,
	}, nil
}

// Open returns a fresh handle on the raw bytes, exactly as stored.
func (f *RawMatrixFile) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, unreadable(f.Path, "open", err)
	}
	return file, nil
}

// OpenDecoded returns a fresh handle on the decompressed content.
func (f *RawMatrixFile) OpenDecoded() (io.ReadCloser, error) {
	return GetDecompressingReader(f.Path, f.Compression)
}
