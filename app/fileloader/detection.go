package fileloader

import (
	"bufio"
	"os"
	"strings"

	"matrixdesk/app/mtx"
)

// compressionExtensions maps compression extensions to their CompressionType
var compressionExtensions = map[string]CompressionType{
	".gz":  CompressionGzip,
	".bz2": CompressionBzip2,
	".xz":  CompressionXZ,
}

// matrixExtensions are the uncompressed extensions recognised as Matrix Market.
var matrixExtensions = []string{".mtx", ".mm"}

// DetectFileTypeAndCompression determines both the file type and compression
// type. Compression comes from a .gz/.bz2/.xz suffix, falling back to magic
// bytes. The file type comes from the inner extension, falling back to
// looking for a %%MatrixMarket declaration on the first line of an
// uncompressed file.
func DetectFileTypeAndCompression(filePath string) (FileType, CompressionType) {
	if filePath == "" {
		return FileTypeUnknown, CompressionNone
	}

	lower := strings.ToLower(filePath)
	compressionType := CompressionNone
	innerPath := lower

	for ext, ct := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			compressionType = ct
			innerPath = strings.TrimSuffix(lower, ext)
			break
		}
	}

	if compressionType == CompressionNone {
		if magicType, err := DetectCompressionByMagic(filePath); err == nil && magicType != CompressionNone {
			// Compressed without a suffix: the inner type cannot be read from
			// the name, and matrix files are all this tool opens.
			return FileTypeMatrixMarket, magicType
		}
	}

	if fileType := detectFileTypeFromPath(innerPath); fileType != FileTypeUnknown {
		return fileType, compressionType
	}
	if compressionType == CompressionNone && hasDeclarationLine(filePath) {
		return FileTypeMatrixMarket, CompressionNone
	}
	return FileTypeUnknown, compressionType
}

// detectFileTypeFromPath determines file type from a path (without compression extension)
func detectFileTypeFromPath(path string) FileType {
	for _, ext := range matrixExtensions {
		if strings.HasSuffix(path, ext) {
			return FileTypeMatrixMarket
		}
	}
	return FileTypeUnknown
}

func hasDeclarationLine(filePath string) bool {
	f, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	line = strings.TrimPrefix(line, "\ufeff")
	return len(line) >= len(mtx.DeclarationPrefix) &&
		strings.EqualFold(line[:len(mtx.DeclarationPrefix)], mtx.DeclarationPrefix)
}

// GetUncompressedExtension returns the file extension without compression suffix
// e.g., "data.mtx.gz" -> ".mtx", "data.mm.bz2" -> ".mm"
func GetUncompressedExtension(filePath string) string {
	lower := strings.ToLower(filePath)

	for ext := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			lower = strings.TrimSuffix(lower, ext)
			break
		}
	}

	lastDot := strings.LastIndex(lower, ".")
	if lastDot == -1 {
		return ""
	}

	return lower[lastDot:]
}
