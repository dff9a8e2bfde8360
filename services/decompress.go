package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// sourceReader remembers the last non-EOF error returned by the compressed
// source so that transport failures are not reported as decompression ones.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}

// Decompressor turns a gzip stream into plain bytes incrementally.
type Decompressor struct {
	src *sourceReader
	gz  *gzip.Reader
	n   int64
}

// NewDecompressor reads the gzip header from r. A bad header is reported as
// ErrDecompression; an error from r itself is returned unchanged.
func NewDecompressor(r io.Reader) (*Decompressor, error) {
	src := &sourceReader{r: r}
	gz, err := gzip.NewReader(src)
	if err != nil {
		return nil, classify(src, err)
	}
	return &Decompressor{src: src, gz: gz}, nil
}

func (d *Decompressor) Read(p []byte) (int, error) {
	n, err := d.gz.Read(p)
	d.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, classify(d.src, err)
	}
	return n, err
}

// BytesOut reports how many decompressed bytes have been produced so far.
func (d *Decompressor) BytesOut() int64 {
	return d.n
}

func (d *Decompressor) Close() error {
	return d.gz.Close()
}

func classify(src *sourceReader, err error) error {
	if src.err != nil {
		return src.err
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %v", ErrDecompression, err)
}
