// Package transform provides the positional row container shared by the
// parser and the entity loaders. Rows are pooled to reduce heap churn when a
// source extract runs to millions of lines.
package transform

import "sync"

// Row is a pooled container holding one source record, positionally aligned
// to the column order the consumer asked the parser for.
//
// Ownership contract:
//   - Exactly one goroutine "owns" a Row at a time.
//   - A Row may be passed downstream via channels (ownership transfer).
//   - The final consumer must call Free() AFTER it is fully done with the Row
//     (and anything referencing r.V).
//
// On cancellation paths use Drop() instead of Free(): a canceled drain can
// otherwise race with upstream reuse of the same pooled Row.
type Row struct {
	V    []any
	Line int // 1-based logical record number, if known
}

var rowPool sync.Pool

// GetRow returns a pooled Row with length colCount. All elements are zeroed.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		return r
	}
	return &Row{
		V:    make([]any, colCount),
		Line: 0,
	}
}

// Free returns the Row to the pool.
// Call this ONLY when you're sure no other goroutine can observe r or r.V.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row WITHOUT returning it to the pool.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}

// String returns the string value at column index i, or "" when the field is
// absent. ok reports whether the field held a non-nil value.
func (r *Row) String(i int) (s string, ok bool) {
	if i < 0 || i >= len(r.V) || r.V[i] == nil {
		return "", false
	}
	if s, ok := r.V[i].(string); ok {
		return s, true
	}
	return "", false
}
