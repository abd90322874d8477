// Package framer splits a byte stream into newline-delimited lines.
//
// Unlike bufio.Scanner it has no maximum line length, keeps empty lines,
// and does not strip carriage returns: every input byte other than the
// '\n' delimiters is returned in exactly one line.
package framer

import (
	"bytes"
	"errors"
	"io"
)

const delim = '\n'

// DefaultChunkSize is the read size used by Copy.
const DefaultChunkSize = 32 * 1024

// Framer buffers partial lines across chunk boundaries. It is not safe for
// concurrent use; run one Framer per stream.
type Framer struct {
	partial []byte
}

// New returns an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Feed consumes chunk and returns the lines it completes, in order.
func (f *Framer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	var lines []string
	for {
		i := bytes.IndexByte(chunk, delim)
		if i < 0 {
			break
		}
		if len(f.partial) > 0 {
			f.partial = append(f.partial, chunk[:i]...)
			lines = append(lines, string(f.partial))
			f.partial = f.partial[:0]
		} else {
			lines = append(lines, string(chunk[:i]))
		}
		chunk = chunk[i+1:]
	}
	f.partial = append(f.partial, chunk...)
	return lines
}

// Flush returns the buffered partial line, if any, and resets the Framer.
func (f *Framer) Flush() (string, bool) {
	if len(f.partial) == 0 {
		return "", false
	}
	line := string(f.partial)
	f.partial = f.partial[:0]
	return line, true
}

// Pending reports how many bytes are buffered waiting for a delimiter.
func (f *Framer) Pending() int {
	return len(f.partial)
}

// Copy reads r until EOF or error, calling fn for each complete line.
// The trailing fragment is flushed before Copy returns, including when the
// read fails. io.EOF is not reported as an error.
func Copy(r io.Reader, fn func(string)) error {
	f := New()
	buf := make([]byte, DefaultChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range f.Feed(buf[:n]) {
				fn(line)
			}
		}
		if err != nil {
			if line, ok := f.Flush(); ok {
				fn(line)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
