// Package normalize holds the stateless field cleaners applied between
// extraction and load: date reconciliation, phone canonicalization, category
// casing, and null coalescing.
package normalize

import (
	"strings"
	"time"
)

// ISODate is the canonical textual form every parsed date is rendered to.
const ISODate = "2006-01-02"

// dateLayouts is the ordered list of format attempts. First success wins.
//
// The ordering is a deliberate heuristic, not a guarantee of correctness for
// ambiguous inputs: "03/04/2024" parses day-first because the day-first layout
// is tried before the month-first ones. Do not reorder without auditing the
// source extracts.
var dateLayouts = []string{
	ISODate,      // ISO year-month-day
	"02/01/2006", // day/month/year
	"01-02-2006", // month-day-year, hyphenated
	"01/02/2006", // month/day/year, slash-separated
}

// Date parses a raw date string against the ordered layout list and renders
// the first successful parse as YYYY-MM-DD.
//
// Edge cases:
//   - Empty or whitespace-only input returns ok=false.
//   - Calendar validity is enforced by time.Parse (e.g. "31/02/2024" fails
//     every layout and returns ok=false).
//   - An already-normalized YYYY-MM-DD input round-trips unchanged.
//
// Date is total: every input maps to either a calendar date or ok=false.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return t.Format(ISODate), true
	}
	return "", false
}

// DateValue applies Date to a raw field value as produced by the parser
// (string or nil). Anything unparseable collapses to nil.
func DateValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if d, ok := Date(s); ok {
		return d
	}
	return nil
}
