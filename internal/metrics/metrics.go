// Package metrics is a minimal pluggable metrics facade. The pipeline reports
// counters through package-level helpers; a process configures a concrete
// backend (e.g. Datadog) at startup or leaves the nop default in place.
//
// Design goals (intentionally opinionated):
//   - Core ETL code depends only on this package, never on a vendor SDK.
//   - The nop default makes metrics strictly optional: a missing backend
//     costs one interface call per update and nothing else.
package metrics

import "sync/atomic"

// Labels are free-form key -> value tags attached to an update.
type Labels map[string]string

// Backend receives metric updates and ships them somewhere.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend atomic.Value // of Backend

func init() {
	backend.Store(Backend(nopBackend{}))
}

// SetBackend installs the process-wide backend. Call once at startup, before
// the pipeline runs.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(b)
}

func current() Backend {
	return backend.Load().(Backend)
}

// IncCounter adds delta to a named counter on the configured backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of a named distribution.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush forces the configured backend to submit anything it has buffered.
func Flush() error {
	return current().Flush()
}
