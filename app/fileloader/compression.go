package fileloader

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression format of a file
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

// String returns the string representation of CompressionType
func (ct CompressionType) String() string {
	switch ct {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

// Magic byte signatures for compression detection
var (
	// Gzip magic bytes: 1f 8b
	gzipMagic = []byte{0x1f, 0x8b}
	// Bzip2 magic bytes: 42 5a 68 ("BZh")
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	// XZ magic bytes: fd 37 7a 58 5a 00
	xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// magicLen is the longest magic signature (xz).
const magicLen = 6

// compressionFromMagic matches the leading bytes of a stream.
func compressionFromMagic(header []byte) CompressionType {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// DetectCompressionByMagic reads the first few bytes of a file and detects compression type
func DetectCompressionByMagic(filePath string) (CompressionType, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return CompressionNone, err
	}
	defer f.Close()

	header := make([]byte, magicLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return CompressionNone, err
	}
	return compressionFromMagic(header[:n]), nil
}

// NewDecompressingReader wraps r according to compressionType. The returned
// closer releases the decompressor only; r stays owned by the caller.
func NewDecompressingReader(r io.Reader, compressionType CompressionType) (io.ReadCloser, error) {
	switch compressionType {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzReader, nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case CompressionXZ:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return io.NopCloser(xzReader), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %v", compressionType)
	}
}

// SniffingReader detects compression from the first bytes of r and returns
// a reader over the decompressed stream. Used for inputs without a path
// (stdin).
func SniffingReader(r io.Reader) (io.ReadCloser, CompressionType, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(magicLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, CompressionNone, err
	}
	ct := compressionFromMagic(header)
	rc, err := NewDecompressingReader(br, ct)
	if err != nil {
		return nil, ct, err
	}
	return rc, ct, nil
}

// GetDecompressingReader returns a reader that decompresses the file on-the-fly.
func GetDecompressingReader(filePath string, compressionType CompressionType) (io.ReadCloser, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, unreadable(filePath, "open", err)
	}
	if compressionType == CompressionNone {
		return f, nil
	}

	dec, err := NewDecompressingReader(f, compressionType)
	if err != nil {
		f.Close()
		return nil, unreadable(filePath, "decompress", err)
	}
	return &decompressingReadCloser{reader: dec, file: f}, nil
}

// decompressingReadCloser wraps a decompressing reader and the underlying file
type decompressingReadCloser struct {
	reader io.ReadCloser
	file   *os.File
}

func (d *decompressingReadCloser) Read(p []byte) (n int, err error) {
	return d.reader.Read(p)
}

func (d *decompressingReadCloser) Close() error {
	d.reader.Close()
	return d.file.Close()
}
