package opal

import (
	"context"
	"io"
)

// Progress describes the state of one transfer. Total is -1 while the size
// is unknown, which callers render as an indeterminate busy indicator.
type Progress struct {
	URL      string
	Received int64
	Total    int64
}

// Fraction returns the completed share in [0,1], or -1 when indeterminate.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return -1
	}
	if p.Received >= p.Total {
		return 1
	}
	return float64(p.Received) / float64(p.Total)
}

const chunkSize = 32 * 1024

// copyChunks copies src to dst one chunk at a time, checking ctx for an
// abort between chunks and reporting progress after each one.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader, p Progress, report func(Progress)) (int64, error) {
	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			return p.Received, ctx.Err()
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return p.Received, werr
			}
			p.Received += int64(n)
			if report != nil {
				report(p)
			}
		}

		if err == io.EOF {
			return p.Received, nil
		}
		if err != nil {
			return p.Received, err
		}
	}
}
