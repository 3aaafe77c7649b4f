// Package javaobj decodes the Java Object Serialization Stream protocol
// (the wire format java.io.ObjectOutputStream produces) into plain Go
// values, and writes a compatible subset of it back out.
package javaobj

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/pkg/errors"
)

var gzipMagic = [2]byte{0x1F, 0x8B}

// ParseReader decodes a single top-level content value from r, which may
// be a gzip-compressed stream.
func ParseReader(r io.Reader, opts ...Option) (interface{}, error) {
	br, ok := r.(peeker)
	if !ok {
		r = newPeekReader(r)
		br = r.(peeker)
	}
	dr, err := maybeDecompressPeeker(br)
	if err != nil {
		return nil, err
	}
	return NewParser(dr, opts...).ParseOne()
}

// ParseBytes decodes a single top-level content value from buf, which may
// be gzip-compressed.
func ParseBytes(buf []byte, opts ...Option) (interface{}, error) {
	return ParseReader(bytes.NewReader(buf), opts...)
}

// ParseAllReader decodes every top-level content value from r until the
// stream is exhausted.
func ParseAllReader(r io.Reader, opts ...Option) ([]interface{}, error) {
	br, ok := r.(peeker)
	if !ok {
		r = newPeekReader(r)
		br = r.(peeker)
	}
	dr, err := maybeDecompressPeeker(br)
	if err != nil {
		return nil, err
	}
	return NewParser(dr, opts...).ParseAll()
}

// ParseAllBytes decodes every top-level content value from buf, which may
// be gzip-compressed.
func ParseAllBytes(buf []byte, opts ...Option) ([]interface{}, error) {
	return ParseAllReader(bytes.NewReader(buf), opts...)
}

type peeker interface {
	io.Reader
	Peek(n int) ([]byte, error)
}

type peekReader struct {
	buf []byte
	r   io.Reader
}

func newPeekReader(r io.Reader) io.Reader {
	return &peekReader{r: r}
}

func (p *peekReader) Peek(n int) ([]byte, error) {
	for len(p.buf) < n {
		tmp := make([]byte, n-len(p.buf))
		read, err := p.r.Read(tmp)
		p.buf = append(p.buf, tmp[:read]...)
		if err != nil {
			return p.buf, err
		}
	}
	return p.buf[:n], nil
}

func (p *peekReader) Read(out []byte) (int, error) {
	if len(p.buf) > 0 {
		n := copy(out, p.buf)
		p.buf = p.buf[n:]
		return n, nil
	}
	return p.r.Read(out)
}

func maybeDecompressPeeker(r peeker) (io.Reader, error) {
	head, err := r.Peek(2)
	if err != nil || len(head) < 2 {
		return r, nil
	}
	if head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip stream")
		}
		return gz, nil
	}
	return r, nil
}
