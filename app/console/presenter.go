// Package console renders App results to a terminal.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"matrixdesk/app/api"
	"matrixdesk/app/export"
	"matrixdesk/app/mtx"
)

const busyTick = 200 * time.Millisecond

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Presenter writes results to out and notices to errOut.
type Presenter struct {
	out    io.Writer
	errOut io.Writer
	opts   export.TableOptions

	// Quiet suppresses the busy indicator.
	Quiet bool

	mu sync.Mutex
}

// New creates a terminal presenter.
func New(out, errOut io.Writer, opts export.TableOptions) *Presenter {
	return &Presenter{out: out, errOut: errOut, opts: opts}
}

func (p *Presenter) table(title string, g *mtx.Grid) {
	if title != "" {
		fmt.Fprintf(p.out, "%s\n", title)
	}
	if err := export.WriteTable(p.out, g, p.opts); err != nil {
		fmt.Fprintf(p.errOut, "error: %v\n", err)
	}
}

func (p *Presenter) RenderGrid(title string, grid *mtx.Grid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table(title, grid)
}

func (p *Presenter) RenderInverse(result *api.InverseResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table(fmt.Sprintf("Original matrix (%s)", result.Name), result.Original)
	fmt.Fprintln(p.out)
	p.table("Inverse matrix", result.Inverse)
}

func (p *Presenter) RenderDecomposition(blocks []*mtx.Grid, algorithm api.Algorithm, timeTaken float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "Algorithm: %s\nTime taken: %.4f s\n", algorithm, timeTaken)
	names := algorithm.BlockNames()
	for i, b := range blocks {
		name := fmt.Sprintf("Block %d", i+1)
		if i < len(names) {
			name = names[i]
		}
		fmt.Fprintln(p.out)
		p.table(name, b)
	}
}

func (p *Presenter) RenderWorkerError(worker, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.errOut, "error: %s: %s\n", worker, message)
}

// Notify writes info to out and warnings and errors to errOut.
func (p *Presenter) Notify(level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch level {
	case "warn", "error":
		fmt.Fprintf(p.errOut, "%s: %s\n", level, message)
	default:
		fmt.Fprintln(p.out, message)
	}
}

// ShowBusy animates a spinner on errOut until done is called. done is safe
// to call more than once.
func (p *Presenter) ShowBusy(label string) (done func()) {
	if p.Quiet {
		return func() {}
	}
	start := time.Now()
	stop := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(busyTick)
		defer ticker.Stop()
		for frame := 0; ; frame++ {
			p.mu.Lock()
			fmt.Fprintf(p.errOut, "\r%s %s...", spinnerFrames[frame%len(spinnerFrames)], label)
			p.mu.Unlock()
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-finished
			p.mu.Lock()
			fmt.Fprintf(p.errOut, "\r%s... done (%s)\n", label, time.Since(start).Round(time.Millisecond))
			p.mu.Unlock()
		})
	}
}
