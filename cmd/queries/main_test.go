package main

import (
	"strings"
	"testing"
)

func TestCustomerHistorySQLDialects(t *testing.T) {
	if sql := customerHistorySQL("postgres"); !strings.Contains(sql, "CONCAT(c.first_name") {
		t.Error("postgres dialect should use CONCAT")
	}
	if sql := customerHistorySQL("sqlite"); !strings.Contains(sql, "c.first_name || ' ' || c.last_name") {
		t.Error("sqlite dialect should use || concatenation")
	}
}

func TestMonthlyTrendSQLDialects(t *testing.T) {
	cases := map[string]string{
		"postgres": "TO_CHAR(o.order_date, 'Month')",
		"sqlite":   "strftime('%m', o.order_date)",
		"mssql":    "DATENAME(month, o.order_date)",
	}
	for kind, frag := range cases {
		if sql := monthlyTrendSQL(kind); !strings.Contains(sql, frag) {
			t.Errorf("%s dialect missing %q", kind, frag)
		}
	}

	// All dialects share the running-total window.
	for kind := range cases {
		if sql := monthlyTrendSQL(kind); !strings.Contains(sql, "SUM(monthly_revenue) OVER (") {
			t.Errorf("%s dialect missing cumulative window", kind)
		}
	}
}

func TestBusinessQueriesCount(t *testing.T) {
	if got := len(businessQueries("postgres")); got != 3 {
		t.Fatalf("got %d queries, want 3", got)
	}
}
