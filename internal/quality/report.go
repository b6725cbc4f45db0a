package quality

import (
	"fmt"
	"io"
	"strings"
)

// WriteReport renders the final accumulator state as the plain-text execution
// report operators use to audit data loss without reading logs.
//
// Layout mirrors the counters exactly: per file — records processed,
// duplicates removed, missing values handled (filled + dropped, with the
// sub-breakdown), records loaded, success rate, and a reason-by-reason drop
// breakdown. Pure formatting; no business logic.
func WriteReport(w io.Writer, m *Metrics) error {
	var b strings.Builder

	b.WriteString("FLEXIMART ETL EXECUTION REPORT\n")
	b.WriteString("==============================\n\n")
	b.WriteString("DATE HANDLING POLICY:\n")
	b.WriteString("- registration_date (nullable): invalid/unparseable dates stored as NULL\n")
	b.WriteString("- order_date (NOT NULL): records with invalid dates are dropped\n")
	b.WriteString("All valid dates are normalized to YYYY-MM-DD.\n\n")

	for _, file := range m.Files() {
		stats := m.Stats(file)

		b.WriteString("FILE: " + file + "\n")
		b.WriteString(strings.Repeat("-", 50) + "\n")

		fmt.Fprintf(&b, "  Records Processed:        %d\n", stats.RecordsRead)
		fmt.Fprintf(&b, "  Duplicates Removed:       %d\n", stats.DuplicatesRemoved)

		totalMissing := stats.MissingValuesFilled + stats.RowsDropped
		fmt.Fprintf(&b, "  Missing Values Handled:   %d\n", totalMissing)
		fmt.Fprintf(&b, "    - Filled with defaults: %d\n", stats.MissingValuesFilled)
		fmt.Fprintf(&b, "    - Dropped:              %d\n", stats.RowsDropped)

		fmt.Fprintf(&b, "  Records Loaded:           %d\n", stats.RecordsLoaded)

		if stats.RecordsRead > 0 {
			rate := float64(stats.RecordsLoaded) / float64(stats.RecordsRead) * 100
			fmt.Fprintf(&b, "  Success Rate:             %.2f%%\n", rate)
		} else {
			b.WriteString("  Success Rate:             N/A (no records processed)\n")
		}

		if reasons := m.Reasons(file); len(reasons) > 0 {
			b.WriteString("  Drop Reasons:\n")
			for _, reason := range reasons {
				fmt.Fprintf(&b, "    * %s: %d\n", reason, stats.DropReasons[reason])
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
