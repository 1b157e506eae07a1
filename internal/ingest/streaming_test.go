package ingest

import (
	"io"
	"strings"
	"testing"
)

// chunkReader yields the source one byte at a time, forcing multi-byte UTF-8
// sequences to split across reads.
type chunkReader struct {
	data []byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	p[0] = c.data[0]
	c.data = c.data[1:]
	return 1, nil
}

func TestWrapReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "hello,world", "hello,world"},
		{"bom stripped", "\xEF\xBB\xBFhello", "hello"},
		{"bom only", "\xEF\xBB\xBF", ""},
		{"short input", "ab", "ab"},
		{"valid multibyte kept", "josé,café", "josé,café"},
		{"invalid bytes replaced", "a\xFFb\xFEc", "a?b?c"},
		{"truncated sequence at end", "abc\xC3", "abc?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(WrapReader(strings.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("WrapReader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWrapReader_SplitMultibyte(t *testing.T) {
	// é arrives one byte per read; the sanitizer must reassemble it.
	src := &chunkReader{data: []byte("caf\xC3\xA9!")}
	got, err := io.ReadAll(WrapReader(src))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "café!" {
		t.Errorf("got %q, want %q", got, "café!")
	}
}
