// Package datasource defines where raw input bytes come from. Parsers turn
// the opened stream into rows; see internal/source.
package datasource

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is matched by errors.Is when the input does not exist (missing
// file, HTTP 404).
var ErrNotFound = errors.New("datasource: not found")

// Source opens an input stream. Each Open starts from the beginning; the
// caller closes the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
