package mtx

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single Matrix Market line. Real files hold one number
// (or one triple) per line, so 1MB is generous.
const maxLineSize = 1024 * 1024

// byteOrderMark is dropped from the start of the first line.
const byteOrderMark = "\ufeff"

// lineReader is a single-pass line cursor with one line of pushback. The
// header classifier uses the pushback to leave the cursor on the first data
// line.
type lineReader struct {
	scanner *bufio.Scanner
	line    int // 1-based number of the last line returned
	pending *string
	err     error
}

func newLineReader(r io.Reader) *lineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineReader{scanner: scanner}
}

// next returns the next line without its terminator. ok is false at the end
// of input or on a read error (see Err).
func (l *lineReader) next() (string, bool) {
	if l.pending != nil {
		s := *l.pending
		l.pending = nil
		l.line++
		return s, true
	}
	if !l.scanner.Scan() {
		l.err = l.scanner.Err()
		return "", false
	}
	l.line++
	text := l.scanner.Text()
	if l.line == 1 {
		text = strings.TrimPrefix(text, byteOrderMark)
	}
	return strings.TrimRight(text, "\r"), true
}

// unread pushes the last returned line back so the following next call
// returns it again.
func (l *lineReader) unread(s string) {
	l.pending = &s
	l.line--
}

// lineNumber returns the 1-based number of the last line returned by next.
func (l *lineReader) lineNumber() int {
	return l.line
}

// Err returns the first non-EOF read error.
func (l *lineReader) Err() error {
	return l.err
}
