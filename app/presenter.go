package app

import (
	"matrixdesk/app/api"
	"matrixdesk/app/mtx"
)

// Notification levels passed to Presenter.Notify.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Presenter shows results to the user. The App never formats output
// itself; everything visible goes through these calls.
type Presenter interface {
	RenderGrid(title string, grid *mtx.Grid)
	RenderInverse(result *api.InverseResult)
	RenderDecomposition(blocks []*mtx.Grid, algorithm api.Algorithm, timeTaken float64)
	RenderWorkerError(worker, message string)
	Notify(level, message string)
	// ShowBusy displays a wait indicator until the returned func is called.
	ShowBusy(label string) (done func())
}

type nopPresenter struct{}

func (nopPresenter) RenderGrid(string, *mtx.Grid) {}
func (nopPresenter) RenderInverse(*api.InverseResult) {}
func (nopPresenter) RenderDecomposition([]*mtx.Grid, api.Algorithm, float64) {}
func (nopPresenter) RenderWorkerError(string, string) {}
func (nopPresenter) Notify(string, string) {}
func (nopPresenter) ShowBusy(string) func() { return func() {} }
