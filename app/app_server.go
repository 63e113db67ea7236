package app

import (
	"context"
	"fmt"

	"matrixdesk/app/api"
	"matrixdesk/app/export"
	"matrixdesk/app/verify"
)

// Login authenticates and keeps the session on the client for later calls.
func (a *App) Login(ctx context.Context, login, password string) (*api.Session, error) {
	done := a.busy("Logging in")
	s, err := a.client.Login(ctx, login, password)
	done()
	if err != nil {
		return nil, a.report("Login", err)
	}
	a.settings.Login = s.Login
	a.presenter.Notify(LevelInfo, fmt.Sprintf("Logged in as %s", s.Login))
	return s, nil
}

// Register creates an account. It does not log in.
func (a *App) Register(ctx context.Context, r api.RegisterRequest) (*api.LoginResponse, error) {
	done := a.busy("Registering")
	resp, err := a.client.Register(ctx, r)
	done()
	if err != nil {
		return nil, a.report("Register", err)
	}
	msg := resp.Message
	if msg == "" {
		msg = "Registration successful"
	}
	a.presenter.Notify(LevelInfo, msg)
	return resp, nil
}

// ListMatrices returns the matrices stored for login (or the session's login).
func (a *App) ListMatrices(ctx context.Context, login string) ([]api.StoredMatrix, error) {
	if login == "" {
		login = a.settings.Login
	}
	done := a.busy("Loading matrix list")
	list, err := a.client.ListMatrices(ctx, login)
	done()
	if err != nil {
		return nil, a.report("List", err)
	}
	return list, nil
}

// Status fetches service health. An unhealthy but reachable service is not
// an error; a warning is shown instead.
func (a *App) Status(ctx context.Context) (*api.ServiceStatus, error) {
	st, err := a.client.Status(ctx)
	if err != nil {
		return nil, a.report("Status", err)
	}
	if !st.Healthy() {
		a.presenter.Notify(LevelWarn, fmt.Sprintf("service at %s is %s", a.client.BaseURL(), st.Status))
	}
	return st, nil
}

// Invert requests the inverse of a stored matrix and checks it locally
// before rendering.
func (a *App) Invert(ctx context.Context, name string) (*api.InverseResult, error) {
	done := a.busy("Calculating inverse of " + name)
	res, err := a.client.Invert(ctx, name)
	done()
	if err != nil {
		return nil, a.report("Invert", err)
	}

	report, err := verify.Inverse(res.Original, res.Inverse, verify.DefaultTolerance)
	a.notifyCheck(report, err)
	a.presenter.RenderInverse(res)
	return res, nil
}

// Decompose requests a decomposition of a stored matrix. Every worker's
// result is rendered on its own; a failed worker does not hide the others.
func (a *App) Decompose(ctx context.Context, name string, algorithm api.Algorithm) ([]api.WorkerResult, error) {
	done := a.busy(fmt.Sprintf("Running %s decomposition of %s", algorithm, name))
	results, err := a.client.Decompose(ctx, name, algorithm)
	done()
	if err != nil {
		return nil, a.report("Decompose", err)
	}
	for _, w := range results {
		a.renderWorker(w)
	}
	return results, nil
}

// DecomposeLocal loads path and sends its grid directly to a worker.
func (a *App) DecomposeLocal(ctx context.Context, path string, algorithm api.Algorithm) (*api.WorkerResult, error) {
	tab, err := a.LoadMatrix(ctx, path)
	if err != nil {
		return nil, a.report("Decompose", err)
	}
	done := a.busy(fmt.Sprintf("Running %s decomposition of %s", algorithm, tab.File.Name))
	w, err := a.client.DecomposeGrid(ctx, tab.Result.Grid, algorithm)
	done()
	if err != nil {
		return nil, a.report("Decompose", err)
	}
	if w.Input == nil {
		w.Input = tab.Result.Grid
	}
	a.renderWorker(*w)
	return w, nil
}

func (a *App) renderWorker(w api.WorkerResult) {
	if !w.OK() {
		a.log.Warn("worker failed", "worker", w.Worker, "message", w.Message)
		a.presenter.RenderWorkerError(w.Worker, w.Message)
		return
	}
	a.log.Info("decomposition received",
		"worker", w.Worker,
		"algorithm", string(w.Algorithm),
		"blocks", len(w.Blocks),
		"time_taken", w.TimeTaken,
	)
	if w.Input != nil {
		report, err := verify.Decomposition(w.Input, string(w.Algorithm), w.Blocks, verify.DefaultTolerance)
		report.Subject = w.Worker + " " + report.Subject
		a.notifyCheck(report, err)
	}
	a.presenter.RenderDecomposition(w.Blocks, w.Algorithm, w.TimeTaken)
}

// notifyCheck surfaces a failed residual check. Passing checks are only logged.
func (a *App) notifyCheck(report verify.Report, err error) {
	if err != nil {
		a.log.Debug("result not checked", "error", err)
		return
	}
	if report.OK() {
		a.log.Debug("result checked", "report", report.String())
		return
	}
	a.presenter.Notify(LevelWarn, "result check failed: "+report.String())
}

// ExportXLSX saves sheets as a workbook at path.
func (a *App) ExportXLSX(path string, sheets []export.Sheet) error {
	if err := export.SaveXLSX(path, sheets); err != nil {
		return a.report("Export", err)
	}
	a.presenter.Notify(LevelInfo, fmt.Sprintf("Saved %d sheet(s) to %s", len(sheets), path))
	return nil
}

// CopyToClipboard copies the active tab's grid as tab separated text.
func (a *App) CopyToClipboard() error {
	tab := a.GetActiveTab()
	if tab == nil {
		return a.report("Copy", fmt.Errorf("no matrix loaded"))
	}
	n, err := export.CopyGrid(tab.Result.Grid)
	if err != nil {
		return a.report("Copy", err)
	}
	a.presenter.Notify(LevelInfo, fmt.Sprintf("Copied %s to clipboard (%d bytes)", tab.File.Name, n))
	return nil
}
