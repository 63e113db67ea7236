package mtx

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Element is one decoded entry of the element stream.
type Element struct {
	Row, Col int // zero-based target cell; only set in coordinate mode
	Value    float64
	Line     int  // source line number
	Indexed  bool // Row/Col come from the file (coordinate mode)
	Skip     bool // entry consumed but not placeable (permissive policy only)
}

// ElementDecoder produces a lazy, finite, single-pass stream of elements. It
// skips blank lines and '%' comment lines without advancing the element count.
type ElementDecoder struct {
	lines     *lineReader
	field     Field
	indexed   bool
	strict    bool
	shape     Shape
	decoded   int
	fallbacks []Fallback
}

func newElementDecoder(lines *lineReader, field Field, shape Shape, indexed, strict bool) *ElementDecoder {
	return &ElementDecoder{
		lines:   lines,
		field:   field,
		indexed: indexed,
		strict:  strict,
		shape:   shape,
	}
}

// Next returns the next element, or io.EOF when the input is exhausted.
func (d *ElementDecoder) Next() (Element, error) {
	for {
		line, ok := d.lines.next()
		if !ok {
			if err := d.lines.Err(); err != nil {
				return Element{}, err
			}
			return Element{}, io.EOF
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "%") {
			continue
		}

		lineNo := d.lines.lineNumber()
		var (
			e   Element
			err error
		)
		if d.indexed {
			e, err = d.decodeTriplet(fields, lineNo)
		} else {
			e, err = d.decodePositional(fields, lineNo)
		}
		if err != nil {
			return Element{}, err
		}
		d.decoded++
		return e, nil
	}
}

// Decoded returns the number of elements produced so far.
func (d *ElementDecoder) Decoded() int {
	return d.decoded
}

// Fallbacks returns the elements that were defaulted or skipped.
func (d *ElementDecoder) Fallbacks() []Fallback {
	return d.fallbacks
}

func (d *ElementDecoder) decodePositional(fields []string, lineNo int) (Element, error) {
	v, err := d.decodeValue(fields[0], lineNo)
	if err != nil {
		return Element{}, err
	}
	return Element{Value: v, Line: lineNo}, nil
}

func (d *ElementDecoder) decodeTriplet(fields []string, lineNo int) (Element, error) {
	e := Element{Line: lineNo, Indexed: true}

	if len(fields) < 2 {
		return d.skip(e, strings.Join(fields, " "), "expected row and column indices")
	}
	row, rerr := strconv.Atoi(fields[0])
	col, cerr := strconv.Atoi(fields[1])
	if rerr != nil || cerr != nil {
		return d.skip(e, fields[0]+" "+fields[1], "indices are not integers")
	}
	if row < 1 || row > d.shape.Rows || col < 1 || col > d.shape.Cols {
		return d.skip(e, fields[0]+" "+fields[1], fmt.Sprintf("index outside %dx%d", d.shape.Rows, d.shape.Cols))
	}
	e.Row, e.Col = row-1, col-1

	if d.field == FieldPattern {
		e.Value = 1
		return e, nil
	}
	if len(fields) < 3 {
		return d.fallback(e, "", "missing value")
	}
	v, err := d.decodeValue(fields[2], lineNo)
	if err != nil {
		return Element{}, err
	}
	e.Value = v
	return e, nil
}

// decodeValue parses tok according to the field type. Pattern and unknown
// fields carry no value and decode to 0.
func (d *ElementDecoder) decodeValue(tok string, lineNo int) (float64, error) {
	var (
		v   float64
		err error
	)
	switch d.field {
	case FieldInteger:
		var n int64
		n, err = strconv.ParseInt(tok, 10, 64)
		v = float64(n)
	case FieldReal:
		v, err = strconv.ParseFloat(tok, 64)
	default:
		return 0, nil
	}
	if err == nil {
		return v, nil
	}
	if d.strict {
		return 0, &ElementDecodeError{Line: lineNo, Token: tok, Reason: "not a valid " + d.field.String(), Err: err}
	}
	d.fallbacks = append(d.fallbacks, Fallback{Line: lineNo, Token: tok, Reason: "not a valid " + d.field.String() + ", using 0"})
	return 0, nil
}

func (d *ElementDecoder) fallback(e Element, tok, reason string) (Element, error) {
	if d.strict {
		return Element{}, &ElementDecodeError{Line: e.Line, Token: tok, Reason: reason}
	}
	d.fallbacks = append(d.fallbacks, Fallback{Line: e.Line, Token: tok, Reason: reason + ", using 0"})
	return e, nil
}

func (d *ElementDecoder) skip(e Element, tok, reason string) (Element, error) {
	if d.strict {
		return Element{}, &ElementDecodeError{Line: e.Line, Token: tok, Reason: reason}
	}
	d.fallbacks = append(d.fallbacks, Fallback{Line: e.Line, Token: tok, Reason: reason + ", entry skipped"})
	e.Skip = true
	return e, nil
}
