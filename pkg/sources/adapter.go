// Package sources defines the contract external record producers
// satisfy and the registry the orchestrator draws from.
package sources

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/normalizers"
)

// Adapter produces a finite sequence of raw records from one external
// source. Adapters are stateless across runs; pagination is internal to
// a single FetchAll call.
//
// FetchAll may return records it already collected alongside a non-nil
// error. Callers must treat the error as the adapter's outcome and the
// records as committed-safe partial data.
type Adapter interface {
	Identity() models.AdapterIdentity
	FetchAll(ctx context.Context) (FetchResult, error)

	// Mapping declares how this source's raw keys map onto canonical
	// fields. The shared normalizer applies it.
	Mapping() normalizers.FieldMapping
}

// FetchResult is the outcome of one fetch: the parsed records plus the
// payload entries that failed to parse and were skipped. Parse failures
// never fail the batch; they are counted into the run's error stats.
type FetchResult struct {
	Records     []models.RawRecord
	ParseErrors []*ParseError
}

// ParseError marks a malformed source payload. The record is skipped
// and the batch continues.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error from %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
