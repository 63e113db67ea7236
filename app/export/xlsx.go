package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"matrixdesk/app/api"
	"matrixdesk/app/mtx"
)

const (
	maxSheetRows    = 1048576
	maxSheetCols    = 16384
	maxSheetNameLen = 31
)

// Sheet is one grid written to its own worksheet.
type Sheet struct {
	Name string
	Grid *mtx.Grid
}

// GridSheets names a single grid.
func GridSheets(name string, g *mtx.Grid) []Sheet {
	return []Sheet{{Name: name, Grid: g}}
}

// InverseSheets lays out an inversion result as "original" and "inverse".
func InverseSheets(res *api.InverseResult) []Sheet {
	return []Sheet{
		{Name: "original", Grid: res.Original},
		{Name: "inverse", Grid: res.Inverse},
	}
}

// DecompositionSheets writes one sheet per factor per successful worker,
// named worker-factor (or just the factor for a single worker).
func DecompositionSheets(results []api.WorkerResult) []Sheet {
	var out []Sheet
	ok := 0
	for _, w := range results {
		if w.OK() {
			ok++
		}
	}
	for _, w := range results {
		if !w.OK() {
			continue
		}
		names := w.Algorithm.BlockNames()
		for i, b := range w.Blocks {
			name := fmt.Sprintf("block%d", i+1)
			if i < len(names) {
				name = names[i]
			}
			if ok > 1 {
				name = w.Worker + "-" + name
			}
			out = append(out, Sheet{Name: name, Grid: b})
		}
	}
	return out
}

// WriteXLSX writes sheets as a workbook to w.
func WriteXLSX(w io.Writer, sheets []Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes sheets to a workbook file at path.
func SaveXLSX(path string, sheets []Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	used := make(map[string]bool)

	for i, s := range sheets {
		if s.Grid == nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q has no grid", s.Name)
		}
		rows, cols := s.Grid.Dims()
		if rows > maxSheetRows || cols > maxSheetCols {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %dx%d exceeds the worksheet limit of %dx%d", s.Name, rows, cols, maxSheetRows, maxSheetCols)
		}
		name := uniqueSheetName(sanitizeSheetName(s.Name, i), used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s.Grid); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, g *mtx.Grid) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %q: %w", sheet, err)
	}
	rows, cols := g.Dims()
	row := make([]interface{}, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = g.At(i, j)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, sheet, err)
		}
	}
	return sw.Flush()
}

func sanitizeSheetName(name string, index int) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetNameLen {
			base = base[:maxSheetNameLen-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
