package task

import (
	"fmt"
	"sync"
	"time"

	"matrixdesk/app/interfaces"
)

// StageProgress tracks progress for a single stage
type StageProgress struct {
	Name      string
	Current   int64
	Total     int64
	StartTime time.Time
	Message   string
}

// Tracker records the stages reported through its callback and forwards
// every report to the wrapped callback.
type Tracker struct {
	forward   interfaces.ProgressCallback
	stages    map[string]*StageProgress
	order     []string
	startTime time.Time
	mutex     sync.RWMutex
}

// NewTracker creates a tracker forwarding to forward (which may be nil).
func NewTracker(forward interfaces.ProgressCallback) *Tracker {
	return &Tracker{
		forward:   forward,
		stages:    make(map[string]*StageProgress),
		startTime: time.Now(),
	}
}

// Callback returns the function to hand to the work being tracked.
func (p *Tracker) Callback() interfaces.ProgressCallback {
	return p.report
}

func (p *Tracker) report(stage string, current, total int64, message string) {
	p.mutex.Lock()
	sp, exists := p.stages[stage]
	if !exists {
		sp = &StageProgress{Name: stage, StartTime: time.Now()}
		p.stages[stage] = sp
		p.order = append(p.order, stage)
	}
	sp.Current = current
	if total >= 0 {
		sp.Total = total
	}
	if message != "" {
		sp.Message = message
	}
	p.mutex.Unlock()

	if p.forward != nil {
		p.forward(stage, current, total, message)
	}
}

// Stages returns stage names in the order they were first reported.
func (p *Tracker) Stages() []string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Current returns a copy of the most recently started stage.
func (p *Tracker) Current() (StageProgress, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if len(p.order) == 0 {
		return StageProgress{}, false
	}
	return *p.stages[p.order[len(p.order)-1]], true
}

// Stage returns a copy of the named stage, or nil.
func (p *Tracker) Stage(name string) *StageProgress {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	stage, exists := p.stages[name]
	if !exists {
		return nil
	}
	cp := *stage
	return &cp
}

// Elapsed returns the time since the tracker was created.
func (p *Tracker) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

// Summary renders the latest stage as "stage: current/total (rate/s)".
func (p *Tracker) Summary() string {
	sp, ok := p.Current()
	if !ok {
		return "idle"
	}
	elapsed := time.Since(sp.StartTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(sp.Current) / elapsed
	}
	if sp.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.0f/s)", sp.Name, sp.Current, sp.Total, rate)
	}
	return fmt.Sprintf("%s: %d (%.0f/s)", sp.Name, sp.Current, rate)
}

// LogCallback creates a progress callback that writes to a logger.
func LogCallback(log interfaces.Logger) interfaces.ProgressCallback {
	return func(stage string, current, total int64, message string) {
		if log != nil {
			log.Log("debug", fmt.Sprintf("[PROGRESS] %s %d/%d %s", stage, current, total, message))
		}
	}
}

// Throttled wraps callback so repeated reports for the same stage arrive at
// most once per minInterval. The first report of every stage always passes.
func Throttled(callback interfaces.ProgressCallback, minInterval time.Duration) interfaces.ProgressCallback {
	var (
		lastCall  time.Time
		lastStage string
		mutex     sync.Mutex
	)
	return func(stage string, current, total int64, message string) {
		mutex.Lock()
		now := time.Now()
		pass := stage != lastStage || now.Sub(lastCall) >= minInterval
		if pass {
			lastCall = now
			lastStage = stage
		}
		mutex.Unlock()

		if pass && callback != nil {
			callback(stage, current, total, message)
		}
	}
}
