// Package quality tracks per-file data-quality counters during a pipeline run
// and renders them into the operator report. It is a pure in-memory
// accumulator: no operation fails and all updates are monotonic increments.
package quality

// FileStats holds the counters for one source file.
type FileStats struct {
	RecordsRead         int
	DuplicatesRemoved   int
	MissingValuesFilled int
	RowsDropped         int
	RecordsLoaded       int

	DropReasons map[string]int

	// reasonOrder keeps the report deterministic (first-seen order).
	reasonOrder []string
}

// Metrics accumulates data-quality counters keyed by source-file identifier.
//
// Ownership: one Metrics value is created per run and passed explicitly into
// each loader. It is not safe for concurrent use; the pipeline is a
// single-threaded batch job.
type Metrics struct {
	files map[string]*FileStats
	order []string
}

// NewMetrics returns an empty accumulator.
func NewMetrics() *Metrics {
	return &Metrics{files: map[string]*FileStats{}}
}

func (m *Metrics) file(name string) *FileStats {
	fs, ok := m.files[name]
	if !ok {
		fs = &FileStats{DropReasons: map[string]int{}}
		m.files[name] = fs
		m.order = append(m.order, name)
	}
	return fs
}

// Read records n rows read from file.
func (m *Metrics) Read(file string, n int) { m.file(file).RecordsRead += n }

// Duplicates records n duplicate rows removed from file.
func (m *Metrics) Duplicates(file string, n int) { m.file(file).DuplicatesRemoved += n }

// Filled records n missing values filled with defaults (or stored as NULL
// where the schema permits it).
func (m *Metrics) Filled(file string, n int) { m.file(file).MissingValuesFilled += n }

// Loaded records n rows successfully persisted from file.
func (m *Metrics) Loaded(file string, n int) { m.file(file).RecordsLoaded += n }

// Dropped records n rows dropped from file under the given reason.
func (m *Metrics) Dropped(file string, reason string, n int) {
	fs := m.file(file)
	fs.RowsDropped += n
	if _, seen := fs.DropReasons[reason]; !seen {
		fs.reasonOrder = append(fs.reasonOrder, reason)
	}
	fs.DropReasons[reason] += n
}

// Files returns the tracked file identifiers in first-seen order.
func (m *Metrics) Files() []string {
	return append([]string(nil), m.order...)
}

// Stats returns the counters for file, or nil if the file was never tracked.
func (m *Metrics) Stats(file string) *FileStats {
	return m.files[file]
}

// Reasons returns the drop reasons for file in first-seen order.
func (m *Metrics) Reasons(file string) []string {
	fs, ok := m.files[file]
	if !ok {
		return nil
	}
	return append([]string(nil), fs.reasonOrder...)
}
