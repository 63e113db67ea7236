package fileloader

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/minio/highwayhash"
)

// FileHashKey is the fixed key used for content hashes, so the same file
// hashes the same across runs and machines.
var FileHashKey = []byte("matrixdesk file hash key\x00\x00\x00\x00\x00\x00\x00\x00")

// HashFile calculates a HighwayHash of the raw (still compressed) file content.
func HashFile(filePath string) (string, error) {
	return HashFileWithKey(filePath, FileHashKey)
}

// HashFileWithKey calculates a HighwayHash of the file content using the provided key
func HashFileWithKey(filePath string, hashKey []byte) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", unreadable(filePath, "open", err)
	}
	defer file.Close()

	sum, err := HashReaderWithKey(file, hashKey)
	if err != nil {
		return "", unreadable(filePath, "hash", err)
	}
	return sum, nil
}

// HashReaderWithKey hashes everything read from r.
func HashReaderWithKey(r io.Reader, hashKey []byte) (string, error) {
	if len(hashKey) != 32 {
		return "", fmt.Errorf("hash key must be exactly 32 bytes, got %d", len(hashKey))
	}
	hash, err := highwayhash.New(hashKey)
	if err != nil {
		return "", fmt.Errorf("failed to create hash: %w", err)
	}
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
