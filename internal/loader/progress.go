package loader

import (
	"context"
	"errors"
	"io"

	"github.com/shopspring/decimal"
)

// progressReader counts the bytes read from the transport and reports the
// transferred ratio. Nothing is reported when the total size is unknown.
type progressReader struct {
	ctx    context.Context
	r      io.Reader
	total  int64
	read   int64
	step   float64
	last   float64
	report func(float64)

	// first transport error, used to tell fetch failures from decode failures
	err error
}

func newProgressReader(ctx context.Context, r io.Reader, total int64, step float64, report func(float64)) *progressReader {
	return &progressReader{
		ctx:    ctx,
		r:      r,
		total:  total,
		step:   step,
		report: report,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		p.fail(err)
		return 0, err
	}

	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.advance()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		p.fail(err)
	}
	return n, err
}

func (p *progressReader) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *progressReader) advance() {
	if p.total <= 0 || p.report == nil || p.last >= 1 {
		return
	}
	ratio := float64(p.read) / float64(p.total)
	if ratio > 1 {
		ratio = 1
	}
	if ratio-p.last >= p.step || (ratio == 1 && p.last < 1) {
		p.last = ratio
		p.report(ratio)
	}
}

// Formats a ratio as a percentage with one decimal, e.g. 0.4567 -> "45.7"
func FormatPercent(ratio float64) string {
	return decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).StringFixed(1)
}
