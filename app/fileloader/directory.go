package fileloader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMatrixPattern matches plain and compressed Matrix Market files at
// any depth.
const DefaultMatrixPattern = "**/*.{mtx,mm,mtx.gz,mtx.bz2,mtx.xz,mm.gz,mm.bz2,mm.xz}"

// DirectoryInfo contains metadata about a discovered directory
type DirectoryInfo struct {
	RootPath   string   // Absolute path to directory
	Files      []string // List of discovered file paths (absolute)
	TotalFiles int      // Total files found
	TotalSize  int64    // Total size in bytes
}

// DirectoryDiscoveryOptions controls file discovery behavior
type DirectoryDiscoveryOptions struct {
	Pattern         string   // Glob pattern filter; DefaultMatrixPattern when empty
	ExcludePatterns []string // Patterns matched against the base name
	MaxFiles        int      // Maximum files to include (0 = unlimited)
}

// DiscoveryProgress reports progress during directory scanning
type DiscoveryProgress struct {
	FilesFound  int
	CurrentPath string
	TotalSize   int64
}

// DiscoveryProgressCallback is called during directory scanning
type DiscoveryProgressCallback func(progress DiscoveryProgress)

// IsDirectory checks if the path is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// DiscoverMatrixFiles recursively finds matrix files in a directory. Results
// are sorted so repeated scans list files in the same order.
func DiscoverMatrixFiles(dirPath string, options DirectoryDiscoveryOptions, progress DiscoveryProgressCallback) (*DirectoryInfo, error) {
	if options.Pattern == "" {
		options.Pattern = DefaultMatrixPattern
	}
	if !doublestar.ValidatePattern(options.Pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", options.Pattern)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if !IsDirectory(absPath) {
		return nil, unreadable(absPath, "scan", fmt.Errorf("not a directory"))
	}

	matches, err := doublestar.Glob(os.DirFS(absPath), options.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern matching failed: %w", err)
	}
	sort.Strings(matches)

	info := &DirectoryInfo{RootPath: absPath}
	for _, rel := range matches {
		if excluded(rel, options.ExcludePatterns) {
			continue
		}
		match := filepath.Join(absPath, filepath.FromSlash(rel))
		stat, err := os.Stat(match)
		if err != nil || stat.IsDir() {
			continue
		}

		info.Files = append(info.Files, match)
		info.TotalSize += stat.Size()

		if progress != nil {
			progress(DiscoveryProgress{
				FilesFound:  len(info.Files),
				CurrentPath: match,
				TotalSize:   info.TotalSize,
			})
		}
		if options.MaxFiles > 0 && len(info.Files) >= options.MaxFiles {
			break
		}
	}
	info.TotalFiles = len(info.Files)
	return info, nil
}

func excluded(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, p := range patterns {
		if matched, _ := doublestar.Match(p, base); matched {
			return true
		}
		if matched, _ := doublestar.Match(p, rel); matched {
			return true
		}
	}
	return false
}

// CalculateDirectoryHash hashes every file's content together with its
// relative path, in sorted path order, so both content and layout changes
// produce a new hash.
func CalculateDirectoryHash(info *DirectoryInfo) (string, error) {
	if info == nil || len(info.Files) == 0 {
		return "", fmt.Errorf("no files in directory info")
	}

	sortedFiles := make([]string, len(info.Files))
	copy(sortedFiles, info.Files)
	sort.Strings(sortedFiles)

	var combined []byte
	for _, filePath := range sortedFiles {
		fileHash, err := HashFile(filePath)
		if err != nil {
			continue
		}
		relPath, err := filepath.Rel(info.RootPath, filePath)
		if err != nil {
			continue
		}
		combined = append(combined, fileHash...)
		combined = append(combined, filepath.ToSlash(relPath)...)
	}
	if len(combined) == 0 {
		return "", fmt.Errorf("failed to hash any files in directory")
	}

	return HashReaderWithKey(bytes.NewReader(combined), FileHashKey)
}
