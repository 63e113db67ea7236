// Package export renders grids for people: aligned text tables, XLSX
// workbooks and clipboard text.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"matrixdesk/app/mtx"
)

// TableOptions bounds how much of a grid a text table shows.
type TableOptions struct {
	MaxRows   int
	MaxCols   int
	Precision int
}

// DefaultTableOptions matches the default preview settings.
func DefaultTableOptions() TableOptions {
	return TableOptions{MaxRows: 20, MaxCols: 10, Precision: 4}
}

// FormatValue renders whole numbers without a fraction and everything else
// with precision significant digits.
func FormatValue(v float64, precision int) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	if precision <= 0 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', precision, 64)
}

// WriteTable writes a column-aligned preview of g. Rows and columns past the
// limits are elided and counted on a trailing line.
func WriteTable(w io.Writer, g *mtx.Grid, opts TableOptions) error {
	if g == nil {
		return fmt.Errorf("no grid to render")
	}
	rows, cols := g.Dims()
	if rows == 0 || cols == 0 {
		_, err := fmt.Fprintf(w, "(empty %dx%d matrix)\n", rows, cols)
		return err
	}
	showRows, showCols := rows, cols
	if opts.MaxRows > 0 && showRows > opts.MaxRows {
		showRows = opts.MaxRows
	}
	if opts.MaxCols > 0 && showCols > opts.MaxCols {
		showCols = opts.MaxCols
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	var sb strings.Builder
	sb.WriteString("\t")
	for j := 0; j < showCols; j++ {
		fmt.Fprintf(&sb, "%d\t", j+1)
	}
	if showCols < cols {
		sb.WriteString("...\t")
	}
	sb.WriteString("\n")
	for i := 0; i < showRows; i++ {
		fmt.Fprintf(&sb, "%d\t", i+1)
		for j := 0; j < showCols; j++ {
			sb.WriteString(FormatValue(g.At(i, j), opts.Precision))
			sb.WriteString("\t")
		}
		if showCols < cols {
			sb.WriteString("...\t")
		}
		sb.WriteString("\n")
	}
	if _, err := io.WriteString(tw, sb.String()); err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if showRows < rows || showCols < cols {
		_, err := fmt.Fprintf(w, "(%dx%d matrix, showing %dx%d)\n", rows, cols, showRows, showCols)
		return err
	}
	return nil
}

// RenderTable returns WriteTable's output as a string.
func RenderTable(g *mtx.Grid, opts TableOptions) string {
	var sb strings.Builder
	if err := WriteTable(&sb, g, opts); err != nil {
		return err.Error()
	}
	return sb.String()
}

// WriteTSV writes every cell, tab separated, one row per line, at full
// precision.
func WriteTSV(w io.Writer, g *mtx.Grid) error {
	bw := bufio.NewWriter(w)
	rows, cols := g.Dims()
	buf := make([]byte, 0, 32)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				bw.WriteByte('\t')
			}
			buf = strconv.AppendFloat(buf[:0], g.At(i, j), 'g', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
