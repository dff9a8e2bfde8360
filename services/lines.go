package services

import (
	"bufio"
	"bytes"
	"io"
	"math"
)

// LineReader yields lines from a text stream with the terminator removed.
// "\n", "\r\n" and a lone "\r" all end a line; there is no line length limit.
type LineReader struct {
	sc *bufio.Scanner
	n  int64
}

// NewLineReader wraps r with a scanner whose buffer grows as needed.
func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 256*1024), math.MaxInt)
	sc.Split(scanAnyLine)
	return &LineReader{sc: sc}
}

// scanAnyLine is bufio.ScanLines extended to treat a lone '\r' as a
// terminator. A '\r' at the end of the buffer waits for more data so that
// a "\r\n" pair split across reads still counts as one ending.
func scanAnyLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Next advances to the next line. It returns false at end of input or on
// error; check Err afterwards.
func (l *LineReader) Next() bool {
	if !l.sc.Scan() {
		return false
	}
	l.n++
	return true
}

// Line returns the current line.
func (l *LineReader) Line() string {
	return l.sc.Text()
}

// LineNumber is the 1-based number of the current line.
func (l *LineReader) LineNumber() int64 {
	return l.n
}

// Err returns the first non-EOF error encountered.
func (l *LineReader) Err() error {
	return l.sc.Err()
}
