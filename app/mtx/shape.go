package mtx

import (
	"errors"
	"strconv"
	"strings"
)

var errNegativeDimension = errors.New("must not be negative")

// Shape is the size line of a Matrix Market file.
type Shape struct {
	Rows        int
	Cols        int
	NonZeros    int  // third token; only meaningful when HasNonZeros
	HasNonZeros bool // a numeric third token was present
}

// Cells returns rows*cols.
func (s Shape) Cells() int {
	return s.Rows * s.Cols
}

// ParseShapeLine parses "<rows> <columns> [<nonzeros>]". At least two integer
// tokens are required. requireNonZeros makes the third token mandatory, as it
// is for coordinate files.
func ParseShapeLine(line string, requireNonZeros bool) (Shape, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Shape{}, &MalformedHeaderError{Text: line, Reason: "expected at least 2 size tokens"}
	}

	rows, err := parseDimension(fields[0])
	if err != nil {
		return Shape{}, &MalformedHeaderError{Text: line, Reason: "rows: " + err.Error()}
	}
	cols, err := parseDimension(fields[1])
	if err != nil {
		return Shape{}, &MalformedHeaderError{Text: line, Reason: "columns: " + err.Error()}
	}

	shape := Shape{Rows: rows, Cols: cols}
	if len(fields) >= 3 {
		nnz, err := parseDimension(fields[2])
		if err == nil {
			shape.NonZeros = nnz
			shape.HasNonZeros = true
		} else if requireNonZeros {
			return Shape{}, &MalformedHeaderError{Text: line, Reason: "nonzeros: " + err.Error()}
		}
	} else if requireNonZeros {
		return Shape{}, &MalformedHeaderError{Text: line, Reason: "coordinate files need a nonzero count"}
	}
	return shape, nil
}

// readShape skips blank and comment lines and parses the first data line.
func readShape(lines *lineReader, requireNonZeros bool) (Shape, error) {
	for {
		line, ok := lines.next()
		if !ok {
			if err := lines.Err(); err != nil {
				return Shape{}, err
			}
			return Shape{}, &MalformedHeaderError{Reason: "no size line before end of input"}
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "%") {
			continue
		}
		shape, err := ParseShapeLine(line, requireNonZeros)
		if err != nil {
			if mh, ok := err.(*MalformedHeaderError); ok {
				mh.Line = lines.lineNumber()
			}
			return Shape{}, err
		}
		return shape, nil
	}
}

func parseDimension(tok string) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeDimension
	}
	return n, nil
}
