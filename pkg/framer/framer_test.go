package framer

import (
	"errors"
	"io"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

func TestFeed(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    []string
		flushed string
	}{
		{"single line", []string{"hello\n"}, []string{"hello"}, ""},
		{"multiple in one chunk", []string{"a\nb\nc\n"}, []string{"a", "b", "c"}, ""},
		{"split across chunks", []string{"hel", "lo\nwor", "ld\n"}, []string{"hello", "world"}, ""},
		{"empty lines kept", []string{"a\n\n\nb\n"}, []string{"a", "", "", "b"}, ""},
		{"leading delimiter", []string{"\nx\n"}, []string{"", "x"}, ""},
		{"empty chunks ignored", []string{"", "a", "", "\n", ""}, []string{"a"}, ""},
		{"trailing fragment", []string{"a\nb"}, []string{"a"}, "b"},
		{"no delimiter at all", []string{"abc", "def"}, nil, "abcdef"},
		{"carriage return preserved", []string{"win\r\n"}, []string{"win\r"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			var got []string
			for _, c := range tt.chunks {
				got = append(got, f.Feed([]byte(c))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines: got %q, want %q", got, tt.want)
			}
			flushed, ok := f.Flush()
			if ok != (tt.flushed != "") || flushed != tt.flushed {
				t.Errorf("flush: got (%q, %v), want %q", flushed, ok, tt.flushed)
			}
			if _, ok := f.Flush(); ok {
				t.Error("second flush should be empty")
			}
		})
	}
}

func TestFeedDoesNotAliasInput(t *testing.T) {
	f := New()
	buf := []byte("abc")
	f.Feed(buf)
	copy(buf, "xyz")
	lines := f.Feed([]byte("\n"))
	if len(lines) != 1 || lines[0] != "abc" {
		t.Errorf("got %q, want [abc]", lines)
	}
}

// Joining the emitted lines with '\n' plus the flushed fragment must reproduce
// the input for any chunking.
func TestRoundTripRandomChunks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte("ab\n\n c\r\n")

	for iter := 0; iter < 500; iter++ {
		input := make([]byte, rng.Intn(200))
		for i := range input {
			input[i] = alphabet[rng.Intn(len(alphabet))]
		}

		f := New()
		var lines []string
		rest := input
		for len(rest) > 0 {
			n := rng.Intn(len(rest)) + 1
			lines = append(lines, f.Feed(rest[:n])...)
			rest = rest[n:]
		}

		var b strings.Builder
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		if tail, ok := f.Flush(); ok {
			b.WriteString(tail)
		}
		if b.String() != string(input) {
			t.Fatalf("iteration %d: round trip mismatch\n got %q\nwant %q", iter, b.String(), input)
		}
	}
}

func TestCopy(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader("one\ntwo\n\nthree"))
	var got []string
	if err := Copy(r, func(s string) { got = append(got, s) }); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	want := []string{"one", "two", "", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCopyReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("ok\npartial"), iotest.ErrReader(boom))
	var got []string
	err := Copy(r, func(s string) { got = append(got, s) })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	want := []string{"ok", "partial"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPending(t *testing.T) {
	f := New()
	f.Feed([]byte("abc\nde"))
	if f.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", f.Pending())
	}
}
