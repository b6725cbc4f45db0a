package normalize

import (
	"regexp"
	"testing"
)

var phonePattern = regexp.MustCompile(`^\+91-\d{10}$`)

func TestPhone(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"plain digits", "9876543210", "+91-9876543210", true},
		{"scientific notation", "9.87654321e9", "+91-9876543210", true},
		{"with country code", "919876543210", "+91-9876543210", true},
		{"float input", float64(9876543210), "+91-9876543210", true},
		{"too short", "12345", "", false},
		{"nil", nil, "", false},
		{"empty", "", "", false},
		{"non numeric", "98-7654-3210", "", false},
		{"negative", "-9876543210", "", false},
	}

	for _, tc := range cases {
		got, ok := Phone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: Phone(%v) = (%q, %v), want (%q, %v)", tc.name, tc.in, got, ok, tc.want, tc.ok)
		}
		if ok && !phonePattern.MatchString(got) {
			t.Fatalf("%s: %q does not match +91-XXXXXXXXXX", tc.name, got)
		}
	}
}

func TestCategory(t *testing.T) {
	cases := map[string]string{
		"electronics":      "Electronics",
		"FASHION":          "Fashion",
		"home appliances":  "Home Appliances",
		"  groceries  ":    "Groceries",
		"eLeCtRoNiCs":      "Electronics",
		"sports & outdoor": "Sports & Outdoor",
	}
	for in, want := range cases {
		if got := Category(in); got != want {
			t.Fatalf("Category(%q) = %q, want %q", in, got, want)
		}
	}
}
