package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter writes to every writer, even when some of them fail.
// Log output keeps flowing to stdout while a log file is unavailable.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		Writers: append([]io.Writer{}, writers...),
	}
}

// Write reports len(p) once any writer took the whole message; errors of the
// others are combined into err.
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var (
		err     error
		written bool
	)
	for _, w := range cw.Writers {
		n, werr := w.Write(p)
		if werr == nil && n < len(p) {
			werr = io.ErrShortWrite
		}
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		written = true
	}

	if !written {
		return 0, err
	}
	return len(p), err
}
