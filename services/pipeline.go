package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"zip-market-etl/models"
	"zip-market-etl/utils"
)

// Result is the outcome of one pass over the source stream.
type Result struct {
	Records           map[string]*models.RegionRecord
	Stats             ReduceStats
	DecompressedBytes int64
}

// Pipeline wires decompression, line reading, schema resolution and the
// reducer together. It processes one line at a time.
type Pipeline struct {
	logger        *utils.Logger
	progressEvery int
}

// NewPipeline creates a Pipeline that logs every progressEvery data rows.
func NewPipeline(logger *utils.Logger, progressEvery int) *Pipeline {
	return &Pipeline{logger: logger, progressEvery: progressEvery}
}

// Run consumes the gzip-compressed TSV in compressed until EOF. The first
// line is the header; each later line is offered to the reducer.
func (p *Pipeline) Run(compressed io.Reader) (*Result, error) {
	dec, err := NewDecompressor(compressed)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return p.run(dec, dec.BytesOut)
}

// RunPlain is Run without the gzip stage, for already decompressed text.
func (p *Pipeline) RunPlain(text io.Reader) (*Result, error) {
	cr := &countingReader{r: text}
	return p.run(cr, func() int64 { return cr.n })
}

func (p *Pipeline) run(text io.Reader, bytesOut func() int64) (*Result, error) {
	lines := NewLineReader(text)
	if !lines.Next() {
		if err := lines.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("%w: input is empty, no header line", ErrSchemaMismatch)
	}

	cols, err := ResolveColumns(lines.Line())
	if err != nil {
		return nil, err
	}
	p.logger.Debug("[pipeline] Resolved columns: %+v", cols)

	reducer := NewReducer(cols, p.logger, p.progressEvery)
	for lines.Next() {
		reducer.ProcessLine(lines.Line())
	}
	if err := lines.Err(); err != nil {
		if errors.Is(err, ErrDecompression) {
			return nil, err
		}
		return nil, fmt.Errorf("read line %d: %w", lines.LineNumber()+1, err)
	}

	stats := reducer.Stats()
	p.logger.Info("[pipeline] Decompressed %s, %d rows, %d zips",
		humanize.Bytes(uint64(bytesOut())), stats.Rows, len(reducer.Records()))

	return &Result{
		Records:           reducer.Records(),
		Stats:             stats,
		DecompressedBytes: bytesOut(),
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
