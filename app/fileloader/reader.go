package fileloader

import (
	"context"
	"errors"
	"io"

	"matrixdesk/app/interfaces"
	"matrixdesk/app/mtx"
	"matrixdesk/shared/types"
)

// ReadMatrix opens its own decoded handle on file and runs the ingestion
// pipeline over it. I/O and decompression failures surface as
// FileUnreadableError; header and element errors pass through unchanged.
func ReadMatrix(ctx context.Context, file *RawMatrixFile, options types.LoadOptions, progress interfaces.ProgressCallback) (*mtx.Result, error) {
	rc, err := file.OpenDecoded()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return readMatrix(ctx, file.Path, rc, options, progress)
}

// ReadMatrixStream parses an already open stream, sniffing its compression.
// name is only used in error messages.
func ReadMatrixStream(ctx context.Context, name string, r io.Reader, options types.LoadOptions, progress interfaces.ProgressCallback) (*mtx.Result, error) {
	rc, _, err := SniffingReader(r)
	if err != nil {
		return nil, unreadable(name, "decompress", err)
	}
	defer rc.Close()

	return readMatrix(ctx, name, rc, options, progress)
}

func readMatrix(ctx context.Context, name string, r io.Reader, options types.LoadOptions, progress interfaces.ProgressCallback) (*mtx.Result, error) {
	res, err := mtx.NewParser(r, options, progress).Parse(ctx)
	if err == nil {
		return res, nil
	}
	switch {
	case errors.Is(err, mtx.ErrMalformedHeader),
		errors.Is(err, mtx.ErrElementDecode),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrFileUnreadable):
		return nil, err
	}
	var optErr *types.OptionsError
	if errors.As(err, &optErr) {
		return nil, err
	}
	return nil, unreadable(name, "read", err)
}
