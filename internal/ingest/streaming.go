package ingest

// streaming.go wraps CSV inputs with constant-memory cleanup readers:
// UTF-8 BOM skipping (Windows exports) and invalid-UTF-8 replacement, so the
// CSV parser downstream only ever sees well-formed text.

import (
	"io"
	"unicode/utf8"
)

// WrapReader layers the cleanup readers in the required order: the BOM must
// go before sanitization sees any bytes.
func WrapReader(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMSkipper(r))
}

// bomSkipper drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) if present.
type bomSkipper struct {
	reader  io.Reader
	checked bool
	held    []byte // bytes read during BOM detection that were not a BOM
}

func newBOMSkipper(r io.Reader) *bomSkipper {
	return &bomSkipper{reader: r}
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var buf [3]byte
		n, err := io.ReadFull(b.reader, buf[:])
		if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
			// BOM consumed.
		} else {
			b.held = buf[:n]
		}
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}
	return b.reader.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly. A
// multi-byte sequence split across reads is held back until completed.
type utf8Sanitizer struct {
	reader  io.Reader
	pending []byte
	eof     bool
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	var err error
	n := offset
	if !s.eof {
		var read int
		read, err = s.reader.Read(p[offset:])
		n += read
		if err == io.EOF {
			s.eof = true
			err = nil
		}
	}
	if n == 0 {
		if s.eof && err == nil {
			err = io.EOF
		}
		return 0, err
	}

	data := p[:n]
	if allASCII(data) {
		return s.finish(n, err)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			if !s.eof && read+utf8.UTFMax > len(data) && utf8.RuneStart(data[read]) {
				// Possibly an incomplete sequence at the buffer end;
				// hold it for the next read.
				s.pending = append(s.pending, data[read:]...)
				break
			}
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return s.finish(write, err)
}

func (s *utf8Sanitizer) finish(n int, err error) (int, error) {
	if n == 0 && err == nil && s.eof && len(s.pending) == 0 {
		err = io.EOF
	}
	return n, err
}

// allASCII is the fast path: most CSV data never needs sanitizing.
func allASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
