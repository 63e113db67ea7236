package app

import (
	"fmt"
	"sort"
	"time"

	"matrixdesk/app/fileloader"
	"matrixdesk/app/mtx"
	"matrixdesk/shared/types"
)

// MatrixTab is one loaded matrix file. Result is shared with the cache and
// must not be modified.
type MatrixTab struct {
	ID        string
	File      *fileloader.RawMatrixFile
	Result    *mtx.Result
	Options   types.LoadOptions
	FromCache bool
	LoadedAt  time.Time

	seq int64
}

// TabInfo contains metadata about a tab for display
type TabInfo struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	FilePath    string `json:"filePath"`
	FileHash    string `json:"fileHash"`
	Compression string `json:"compression,omitempty"`
	Format      string `json:"format"`
	Field       string `json:"field"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Fallbacks   int    `json:"fallbacks"`
	Active      bool   `json:"active"`
}

func (a *App) addTab(file *fileloader.RawMatrixFile, result *mtx.Result, opts types.LoadOptions, fromCache bool) *MatrixTab {
	a.tabsMu.Lock()
	defer a.tabsMu.Unlock()
	a.nextTabID++
	tab := &MatrixTab{
		ID:        fmt.Sprintf("tab-%d", a.nextTabID),
		File:      file,
		Result:    result,
		Options:   opts,
		FromCache: fromCache,
		LoadedAt:  time.Now(),
		seq:       a.nextTabID,
	}
	a.tabs[tab.ID] = tab
	a.activeTabID = tab.ID
	return tab
}

// GetTab returns a specific tab by ID
func (a *App) GetTab(tabID string) *MatrixTab {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	return a.tabs[tabID]
}

// GetActiveTab returns the most recently loaded tab (nil if none)
func (a *App) GetActiveTab() *MatrixTab {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	if a.activeTabID == "" {
		return nil
	}
	return a.tabs[a.activeTabID]
}

// CloseTab forgets a tab. The cached grid stays in the cache.
func (a *App) CloseTab(tabID string) bool {
	a.tabsMu.Lock()
	defer a.tabsMu.Unlock()
	if _, ok := a.tabs[tabID]; !ok {
		return false
	}
	delete(a.tabs, tabID)
	if a.activeTabID == tabID {
		a.activeTabID = ""
	}
	return true
}

// Tabs lists open tabs in load order.
func (a *App) Tabs() []TabInfo {
	a.tabsMu.RLock()
	defer a.tabsMu.RUnlock()
	tabs := make([]*MatrixTab, 0, len(a.tabs))
	for _, tab := range a.tabs {
		tabs = append(tabs, tab)
	}
	sort.Slice(tabs, func(i, j int) bool { return tabs[i].seq < tabs[j].seq })

	out := make([]TabInfo, len(tabs))
	for i, tab := range tabs {
		out[i] = tab.info(tab.ID == a.activeTabID)
	}
	return out
}

func (t *MatrixTab) info(active bool) TabInfo {
	rows, cols := t.Result.Grid.Dims()
	info := TabInfo{
		ID:        t.ID,
		FileName:  t.File.Name,
		FilePath:  t.File.Path,
		FileHash:  t.File.Hash,
		Format:    t.Result.Header.Format().String(),
		Field:     t.Result.Header.Field().String(),
		Rows:      rows,
		Cols:      cols,
		Fallbacks: len(t.Result.Fallbacks),
		Active:    active,
	}
	if t.File.Compression != fileloader.CompressionNone {
		info.Compression = t.File.Compression.String()
	}
	return info
}
