package cache

import "matrixdesk/shared/types"

const (
	filePrefix = "file:"
	optsPrefix = "|opts:"
)

// FileKey builds the cache key for a file's content hash parsed with opts.
// The same bytes parsed with different options are different entries.
func FileKey(fileHash string, opts types.LoadOptions) string {
	return filePrefix + fileHash + optsPrefix + opts.Key()
}
