package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"matrixdesk/app/api"
	"matrixdesk/app/cache"
	"matrixdesk/app/fileloader"
	"matrixdesk/app/interfaces"
	"matrixdesk/app/mtx"
	"matrixdesk/app/task"
)

// progressLogInterval throttles repeated progress reports within a stage.
const progressLogInterval = 250 * time.Millisecond

// LoadMatrix ingests the file at path into a new tab. A previous parse of
// the same content with the same options is served from the cache.
func (a *App) LoadMatrix(ctx context.Context, path string) (*MatrixTab, error) {
	opts := a.settings.LoadOptions()
	file, err := fileloader.NewRawMatrixFile(path)
	if err != nil {
		return nil, err
	}

	key := cache.FileKey(file.Hash, opts)
	if res, ok := a.gridCache.Get(key, file.ModTime); ok {
		return a.addTab(file, res, opts, true), nil
	}

	res, err := a.ingest(ctx, file.Name, func(ctx context.Context, progress interfaces.ProgressCallback) (*mtx.Result, error) {
		return fileloader.ReadMatrix(ctx, file, opts, progress)
	})
	if err != nil {
		return nil, err
	}
	a.gridCache.Store(key, file.Path, file.ModTime, res)
	return a.addTab(file, res, opts, false), nil
}

// LoadStream ingests an already open stream, such as stdin, into a new tab.
// Compression is detected from the content. Streams are never cached.
func (a *App) LoadStream(ctx context.Context, name string, r io.Reader) (*MatrixTab, error) {
	opts := a.settings.LoadOptions()
	res, err := a.ingest(ctx, name, func(ctx context.Context, progress interfaces.ProgressCallback) (*mtx.Result, error) {
		return fileloader.ReadMatrixStream(ctx, name, r, opts, progress)
	})
	if err != nil {
		return nil, err
	}
	file := &fileloader.RawMatrixFile{Path: name, Name: name}
	return a.addTab(file, res, opts, false), nil
}

type readFunc func(ctx context.Context, progress interfaces.ProgressCallback) (*mtx.Result, error)

// ingest runs read under the load deadline with throttled progress logging.
func (a *App) ingest(ctx context.Context, name string, read readFunc) (*mtx.Result, error) {
	if secs := a.settings.LoadTimeoutSeconds; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	tracker := task.NewTracker(task.Throttled(task.LogCallback(a), progressLogInterval))
	res, err := read(ctx, tracker.Callback())
	if err != nil {
		a.log.Debug("load failed", "file", name, "stage", tracker.Summary(), "error", err)
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	rows, cols := res.Grid.Dims()
	a.log.Info("matrix loaded",
		"file", name,
		"rows", rows,
		"cols", cols,
		"elements", res.Elements,
		"fallbacks", len(res.Fallbacks),
		"elapsed_ms", tracker.Elapsed().Milliseconds(),
	)
	return res, nil
}

// PreviewAsync loads path on a background task. The grid is rendered by a
// one-shot completion callback; failures are reported through the presenter.
func (a *App) PreviewAsync(ctx context.Context, path string) *task.Task[*MatrixTab] {
	return a.previewAsync(ctx, func(ctx context.Context) (*MatrixTab, error) {
		return a.LoadMatrix(ctx, path)
	})
}

// Preview loads path and waits for it to be rendered.
func (a *App) Preview(ctx context.Context, path string) (*MatrixTab, error) {
	return a.PreviewAsync(ctx, path).Wait(ctx)
}

// PreviewStream loads r and waits for it to be rendered.
func (a *App) PreviewStream(ctx context.Context, name string, r io.Reader) (*MatrixTab, error) {
	return a.previewAsync(ctx, func(ctx context.Context) (*MatrixTab, error) {
		return a.LoadStream(ctx, name, r)
	}).Wait(ctx)
}

func (a *App) previewAsync(ctx context.Context, load func(ctx context.Context) (*MatrixTab, error)) *task.Task[*MatrixTab] {
	t := task.Run(ctx, load)
	t.Then(func(tab *MatrixTab, err error) {
		if err != nil {
			a.report("Preview", err)
			return
		}
		a.renderTab(tab)
	})
	return t
}

func (a *App) renderTab(tab *MatrixTab) {
	res := tab.Result
	rows, cols := res.Grid.Dims()
	title := fmt.Sprintf("%s (%dx%d %s %s)", tab.File.Name, rows, cols, res.Header.Format(), res.Header.Field())
	if !res.Header.Declared {
		title += ", no header, read as real"
	}
	if tab.FromCache {
		title += ", cached"
	}
	a.presenter.RenderGrid(title, res.Grid)
	if n := len(res.Fallbacks); n > 0 {
		first := res.Fallbacks[0]
		a.presenter.Notify(LevelWarn, fmt.Sprintf("%d element(s) could not be parsed and were read as 0 (first: %s)", n, first))
	}
}

// Upload sends the raw file bytes, unmodified, to the service.
func (a *App) Upload(ctx context.Context, path string) (*api.SaveResponse, error) {
	file, err := fileloader.NewRawMatrixFile(path)
	if err != nil {
		return nil, a.report("Upload", err)
	}
	resp, err := a.upload(ctx, file)
	if err != nil {
		return nil, a.report("Upload", err)
	}
	a.presenter.Notify(LevelInfo, uploadMessage(file, resp))
	return resp, nil
}

func (a *App) upload(ctx context.Context, file *fileloader.RawMatrixFile) (*api.SaveResponse, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	done := a.busy("Uploading " + file.Name)
	defer done()
	return a.client.SaveMatrix(ctx, a.settings.Login, rc, file.Name)
}

func uploadMessage(file *fileloader.RawMatrixFile, resp *api.SaveResponse) string {
	msg := resp.Message
	if msg == "" {
		msg = "Matrix saved"
	}
	return fmt.Sprintf("%s: %s (%d bytes)", file.Name, msg, file.Size)
}

// LoadAndUpload previews and uploads path concurrently. Each side opens its
// own handle on the file; the first failure cancels the other side.
func (a *App) LoadAndUpload(ctx context.Context, path string) (*MatrixTab, *api.SaveResponse, error) {
	file, err := fileloader.NewRawMatrixFile(path)
	if err != nil {
		return nil, nil, a.report("Upload", err)
	}

	var (
		tab  *MatrixTab
		resp *api.SaveResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tab, err = a.LoadMatrix(gctx, file.Path)
		return err
	})
	g.Go(func() error {
		var err error
		resp, err = a.upload(gctx, file)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, a.report("Upload", err)
	}

	a.renderTab(tab)
	a.presenter.Notify(LevelInfo, uploadMessage(file, resp))
	return tab, resp, nil
}

// Generate writes a random dense matrix in Matrix Market array format.
func (a *App) Generate(w io.Writer, rows, cols int, field mtx.Field, opts mtx.RandomOptions) error {
	g, err := mtx.RandomGrid(rows, cols, opts)
	if err != nil {
		return err
	}
	return mtx.WriteArray(w, g, field)
}

// Discover lists the matrix files below dir.
func (a *App) Discover(dir string, opts fileloader.DirectoryDiscoveryOptions) (*fileloader.DirectoryInfo, error) {
	progress := func(p fileloader.DiscoveryProgress) {
		if p.FilesFound%interfaces.ProgressUpdateInterval == 0 {
			a.Log("debug", fmt.Sprintf("[DISCOVER] %d files, %d bytes", p.FilesFound, p.TotalSize))
		}
	}
	return fileloader.DiscoverMatrixFiles(dir, opts, progress)
}
