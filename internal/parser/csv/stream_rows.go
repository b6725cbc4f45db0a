// Package csv streams delimited source extracts into pooled transform.Row
// values aligned to a caller-chosen column order.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"fleximart/internal/transform"
)

// Options controls reader behavior for one source file.
type Options struct {
	// Comma is the field delimiter; 0 means ','.
	Comma rune
	// NoHeader treats the first record as data and maps columns positionally.
	NoHeader bool
	// HeaderMap renames raw header cells before normalization-based matching.
	HeaderMap map[string]string
	// LazyQuotes is passed through to encoding/csv for messy exports.
	LazyQuotes bool
	// KeepSpace disables edge-whitespace trimming of field values.
	KeepSpace bool
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s != strings.TrimSpace(s)
}

// normalizeHeader converts a raw header cell to the lowercase_underscore form
// column requests use.
func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// StreamRows streams CSV from src into pooled *transform.Row objects aligned
// to the target 'columns' order. Header cells are matched after lowercasing
// and space->underscore normalization; a UTF-8 BOM on the first cell is
// stripped. Empty fields become nil.
//
// Row-level read errors are reported through onErr and skipped; the stream
// continues. Header read failure is fatal.
//
// NOTE on cancellation:
// On ctx cancellation in-flight rows must NOT be returned to the pool (Drop
// instead), otherwise the parser can reuse them immediately while downstream
// stages still read them.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	opt Options,
	out chan<- *transform.Row,
	onErr func(line int, err error),
) error {
	defer src.Close()

	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	colIx := make([]int, len(columns))
	for i := range colIx {
		colIx[i] = -1
	}

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	if !opt.NoHeader {
		hdr, err := readRec()
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("read header: %w", err))
			}
			return err
		}
		srcToIdx := make(map[string]int, len(hdr))
		for i, h := range hdr {
			if i == 0 {
				h = strings.TrimPrefix(h, "\ufeff")
			}
			if mapped, ok := opt.HeaderMap[strings.TrimSpace(h)]; ok {
				h = mapped
			} else {
				h = normalizeHeader(h)
			}
			srcToIdx[h] = i
		}
		for t, target := range columns {
			if si, ok := srcToIdx[target]; ok {
				colIx[t] = si
			}
		}
	} else {
		for i := range columns {
			colIx[i] = i
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := transform.GetRow(len(columns))
		row.Line = line

		for t := range columns {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				row.V[t] = nil
				continue
			}
			v := rec[si]
			if !opt.KeepSpace && hasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				row.V[t] = nil
			} else {
				row.V[t] = v
			}
		}

		select {
		case out <- row:
		case <-ctx.Done():
			// IMPORTANT: do not re-pool on cancellation
			row.Drop()
			return ctx.Err()
		}
	}
}

// Collect runs StreamRows synchronously and gathers every row into a slice.
//
// The transform-and-load pipeline is a single-pass batch job that
// deduplicates before loading, so it needs the whole file in memory anyway;
// Collect keeps call sites simple while the streaming core stays reusable.
//
// The caller owns the returned rows and must Free() each one.
func Collect(ctx context.Context, src io.ReadCloser, columns []string, opt Options, onErr func(line int, err error)) ([]*transform.Row, error) {
	out := make(chan *transform.Row, 64)
	errCh := make(chan error, 1)

	go func() {
		errCh <- StreamRows(ctx, src, columns, opt, out, onErr)
		close(out)
	}()

	var rows []*transform.Row
	for r := range out {
		rows = append(rows, r)
	}
	if err := <-errCh; err != nil {
		for _, r := range rows {
			r.Free()
		}
		return nil, err
	}
	return rows, nil
}
