// Package mtx reads and writes Matrix Market text. A Parser runs the header
// classifier, the dimension parser, the element decoder and the assembler
// over one input stream and returns the populated Grid.
package mtx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"matrixdesk/app/interfaces"
	"matrixdesk/shared/types"
)

// State is the ingestion state machine position.
type State int

const (
	StateStart State = iota
	StateReadingComments
	StateReadingHeaderLine
	StateReadingShapeLine
	StateReadingElements
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateReadingComments:
		return "reading comments"
	case StateReadingHeaderLine:
		return "reading header line"
	case StateReadingShapeLine:
		return "reading shape line"
	case StateReadingElements:
		return "reading elements"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// cancelCheckInterval is how many element lines are read between context checks.
const cancelCheckInterval = 256

// Result is a fully assembled matrix plus what the pipeline learned on the way.
type Result struct {
	Header    Header
	Shape     Shape
	Grid      *Grid
	Placement types.PlacementMode // effective placement (auto resolves to positional for array files)
	Elements  int                 // elements consumed, including skipped ones
	LinesRead int                 // input lines consumed
	Fallbacks []Fallback          // elements defaulted or skipped under the permissive policy
}

// Parser runs the ingestion pipeline over one input stream. A Parser is
// single use.
type Parser struct {
	lines    *lineReader
	options  types.LoadOptions
	progress interfaces.ProgressCallback
	state    State
}

// NewParser creates a parser for r. progress may be nil.
func NewParser(r io.Reader, options types.LoadOptions, progress interfaces.ProgressCallback) *Parser {
	return &Parser{
		lines:    newLineReader(r),
		options:  options,
		progress: progress,
		state:    StateStart,
	}
}

// Parse reads a Matrix Market stream with the given options.
func Parse(ctx context.Context, r io.Reader, options types.LoadOptions) (*Result, error) {
	return NewParser(r, options, nil).Parse(ctx)
}

// ParseString is Parse over an in-memory document.
func ParseString(ctx context.Context, s string, options types.LoadOptions) (*Result, error) {
	return Parse(ctx, strings.NewReader(s), options)
}

// State returns the current state machine position.
func (p *Parser) State() State {
	return p.state
}

// Parse runs the pipeline to completion. It stops reading as soon as the
// grid has every element it can hold, so trailing lines are never read.
func (p *Parser) Parse(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.state != StateStart {
		return nil, fmt.Errorf("parser already used (state %s)", p.state)
	}
	if err := p.options.Validate(); err != nil {
		return nil, err
	}

	p.enter(StateReadingComments, interfaces.StageComments, "reading comments")
	header := classifyHeader(p.lines)
	if err := p.lines.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	p.enter(StateReadingHeaderLine, interfaces.StageHeader,
		fmt.Sprintf("format=%s field=%s", header.Format(), header.Field()))

	indexed := header.Format() == FormatCoordinate && !p.options.Positional()
	placement := types.PlacementPositional
	if indexed {
		placement = types.PlacementAuto
	}

	p.enter(StateReadingShapeLine, interfaces.StageShape, "reading size line")
	shape, err := readShape(p.lines, indexed)
	if err != nil {
		return nil, err
	}
	if shape.Rows > 0 && shape.Cols > MaxGridCells/shape.Rows {
		return nil, &MalformedHeaderError{
			Line:   p.lines.lineNumber(),
			Reason: fmt.Sprintf("%dx%d exceeds the preview limit of %d cells", shape.Rows, shape.Cols, MaxGridCells),
		}
	}

	asm := newAssembler(shape, header, indexed)
	dec := newElementDecoder(p.lines, header.Field(), shape, indexed, p.options.Strict())
	total := int64(asm.limit)
	p.enter(StateReadingElements, interfaces.StageElements, fmt.Sprintf("%dx%d", shape.Rows, shape.Cols))

	for !asm.full() {
		if asm.count%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		e, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		asm.place(e)
		if p.progress != nil && asm.count%interfaces.ProgressUpdateInterval == 0 {
			p.progress(interfaces.StageElements, int64(asm.count), total, fmt.Sprintf("Read %d elements", asm.count))
		}
	}

	p.enter(StateComplete, interfaces.StageComplete, fmt.Sprintf("Completed reading %d elements", asm.count))
	return &Result{
		Header:    header,
		Shape:     shape,
		Grid:      asm.grid,
		Placement: placement,
		Elements:  asm.count,
		LinesRead: p.lines.lineNumber(),
		Fallbacks: dec.Fallbacks(),
	}, nil
}

func (p *Parser) enter(s State, stage, message string) {
	p.state = s
	if p.progress != nil {
		p.progress(stage, 0, -1, message)
	}
}
