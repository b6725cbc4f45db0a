package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Phone canonicalizes a raw phone value to "+91-" followed by the last 10
// digits of its integer form.
//
// The source extracts carry phones as plain digit strings, as numbers, and in
// scientific notation (spreadsheet export artifact, e.g. "9.87654321e9").
// Coercing through a float absorbs all three. Anything that does not coerce,
// or whose digit string is shorter than 10, returns ok=false.
//
// Country codes or extensions beyond the last 10 digits are discarded. That
// is the documented contract, not a bug.
func Phone(v any) (string, bool) {
	var f float64

	switch t := v.(type) {
	case nil:
		return "", false
	case float64:
		f = t
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return "", false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", false
		}
		f = parsed
	default:
		return "", false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return "", false
	}

	digits := strconv.FormatFloat(math.Trunc(f), 'f', -1, 64)
	if strings.ContainsAny(digits, ".e") {
		// Beyond integer precision; the last 10 digits would be fabricated.
		return "", false
	}
	if len(digits) < 10 {
		return "", false
	}
	return "+91-" + digits[len(digits)-10:], true
}

// PhoneValue applies Phone to a raw field value, collapsing failures to nil.
func PhoneValue(v any) any {
	if p, ok := Phone(v); ok {
		return p
	}
	return nil
}
