package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCaser is safe for sequential reuse; the pipeline is single-threaded so
// a package-level caser avoids re-allocating per row.
var titleCaser = cases.Title(language.English)

// Category normalizes a product category to Title Case:
// "electronics" -> "Electronics", "FASHION" -> "Fashion",
// "home appliances" -> "Home Appliances".
func Category(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}
