package mtx

import "strings"

// DeclarationPrefix starts the Matrix Market declaration line.
const DeclarationPrefix = "%%MatrixMarket"

// Format is the resolved storage format of a matrix file.
type Format int

const (
	FormatUnknown Format = iota
	FormatArray
	FormatCoordinate
)

func (f Format) String() string {
	switch f {
	case FormatArray:
		return "array"
	case FormatCoordinate:
		return "coordinate"
	default:
		return "unknown"
	}
}

// Field is the resolved numeric field type of a matrix file.
type Field int

const (
	FieldUnknown Field = iota
	FieldReal
	FieldInteger
	FieldPattern
)

func (f Field) String() string {
	switch f {
	case FieldReal:
		return "real"
	case FieldInteger:
		return "integer"
	case FieldPattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// Header holds the flags found on the declaration line. Each flag is true iff
// its token occurs (case-insensitively) on that line; conflicting flags are
// kept as found and resolved by Format and Field.
type Header struct {
	Declared    bool   // a %%MatrixMarket line was seen
	Declaration string // the raw declaration line

	Matrix     bool
	Array      bool
	Coordinate bool
	Real       bool
	Integer    bool
	Pattern    bool

	Symmetric     bool
	SkewSymmetric bool
}

// Format resolves the storage format. A file without a declaration is dense.
// When both array and coordinate are declared the dense reading wins.
func (h Header) Format() Format {
	switch {
	case !h.Declared:
		return FormatArray
	case h.Array:
		return FormatArray
	case h.Coordinate:
		return FormatCoordinate
	default:
		return FormatUnknown
	}
}

// Field resolves the element type, checking integer, real and pattern in that
// order. A file without a declaration is real.
func (h Header) Field() Field {
	switch {
	case !h.Declared:
		return FieldReal
	case h.Integer:
		return FieldInteger
	case h.Real:
		return FieldReal
	case h.Pattern:
		return FieldPattern
	default:
		return FieldUnknown
	}
}

// classifyHeader consumes every leading comment line and classifies the first
// declaration line among them. The cursor is left on the first line that does
// not start with '%'. A missing declaration yields a zero Header, not an error.
func classifyHeader(lines *lineReader) Header {
	var h Header
	for {
		line, ok := lines.next()
		if !ok {
			return h
		}
		if !strings.HasPrefix(line, "%") {
			lines.unread(line)
			return h
		}
		if h.Declared || !hasDeclarationPrefix(line) {
			continue
		}
		h = ParseDeclaration(line)
	}
}

// ParseDeclaration classifies a single declaration line.
func ParseDeclaration(line string) Header {
	lower := strings.ToLower(line)
	h := Header{
		Declared:    true,
		Declaration: strings.TrimSpace(line),
		Array:       strings.Contains(lower, "array"),
		Coordinate:  strings.Contains(lower, "coordinate"),
		Real:        strings.Contains(lower, "real"),
		Integer:     strings.Contains(lower, "integer"),
		Pattern:     strings.Contains(lower, "pattern"),
	}
	for i, tok := range strings.Fields(lower) {
		if i > 0 && tok == "matrix" {
			h.Matrix = true
			break
		}
	}
	h.SkewSymmetric = strings.Contains(lower, "skew-symmetric")
	h.Symmetric = !h.SkewSymmetric && strings.Contains(lower, "symmetric")
	return h
}

func hasDeclarationPrefix(line string) bool {
	return len(line) >= len(DeclarationPrefix) &&
		strings.EqualFold(line[:len(DeclarationPrefix)], DeclarationPrefix)
}
