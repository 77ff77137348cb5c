package week_test

import (
	"testing"
	"time"

	"cadence/internal/week"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestKeyOf(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{date(2026, time.January, 1), "2026-W01"},   // Thursday
		{date(2025, time.December, 29), "2026-W01"}, // Monday of the same ISO week
		{date(2024, time.December, 31), "2025-W01"},
		{date(2026, time.January, 22), "2026-W04"},
		{date(2026, time.December, 28), "2026-W53"}, // 2026 is a 53-week ISO year
	}
	for _, c := range cases {
		if got := week.KeyOf(c.in); got != c.want {
			t.Errorf("KeyOf(%s) = %s, want %s", c.in.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestParseKey(t *testing.T) {
	year, wk, err := week.ParseKey("2026-W04")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if year != 2026 || wk != 4 {
		t.Fatalf("got %d W%d", year, wk)
	}
	for _, bad := range []string{"", "2026-04", "2026-W4", "2026-W00", "2025-W53", "2026-W04 ", "x2026-W04"} {
		if _, _, err := week.ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q): expected error", bad)
		}
	}
	// 2026 has 53 weeks, so W53 is valid there.
	if _, _, err := week.ParseKey("2026-W53"); err != nil {
		t.Errorf("ParseKey(2026-W53): %v", err)
	}
}

func TestWeeks(t *testing.T) {
	if got := week.Weeks(2025); got != 52 {
		t.Errorf("Weeks(2025) = %d, want 52", got)
	}
	if got := week.Weeks(2026); got != 53 {
		t.Errorf("Weeks(2026) = %d, want 53", got)
	}
	if got := week.Weeks(2020); got != 53 {
		t.Errorf("Weeks(2020) = %d, want 53", got)
	}
}

func TestDefaultAnchor(t *testing.T) {
	anchor, err := week.DefaultAnchor("2026-W04")
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	want := date(2026, time.January, 22)
	if !anchor.Equal(want) {
		t.Fatalf("DefaultAnchor(2026-W04) = %s, want %s", anchor, want)
	}
	if anchor.Weekday() != time.Thursday {
		t.Fatalf("anchor is %s, want Thursday", anchor.Weekday())
	}
	// Anchor of week 1 sits in the ISO year it belongs to, even when the
	// Monday falls in the previous calendar year.
	a1, err := week.DefaultAnchor("2026-W01")
	if err != nil {
		t.Fatalf("anchor W01: %v", err)
	}
	if !a1.Equal(date(2026, time.January, 1)) {
		t.Fatalf("DefaultAnchor(2026-W01) = %s", a1)
	}
}

func TestNext(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2026-W04", "2026-W05"},
		{"2026-W52", "2026-W53"},
		{"2026-W53", "2027-W01"},
		{"2025-W52", "2026-W01"},
	}
	for _, c := range cases {
		got, err := week.Next(c.in)
		if err != nil {
			t.Fatalf("Next(%s): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Next(%s) = %s, want %s", c.in, got, c.want)
		}
	}
	if _, err := week.Next("garbage"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseRule(t *testing.T) {
	r, err := week.ParseRule("-4 days 20:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Days != -4 || r.Hour != 20 || r.Minute != 0 {
		t.Fatalf("got %+v", r)
	}
	if r, err = week.ParseRule("0 days 10:30"); err != nil || r.Days != 0 {
		t.Fatalf("zero offset: %+v %v", r, err)
	}
	// Sign defaults to plus, singular "day" accepted.
	if r, err = week.ParseRule("1 day 09:05"); err != nil || r.Days != 1 || r.Hour != 9 || r.Minute != 5 {
		t.Fatalf("singular: %+v %v", r, err)
	}
	for _, bad := range []string{"", "days 20:00", "-4 days", "-4 days 24:00", "-4 days 20:60", "-4 days 20:00 extra", " -4 days 20:00"} {
		if _, err := week.ParseRule(bad); err == nil {
			t.Errorf("ParseRule(%q): expected error", bad)
		}
	}
}

func TestRuleAt(t *testing.T) {
	anchor := date(2026, time.January, 22)
	cases := []struct {
		rule string
		want time.Time
	}{
		{"-4 days 20:00", time.Date(2026, time.January, 18, 20, 0, 0, 0, time.Local)},
		{"+1 days 18:00", time.Date(2026, time.January, 23, 18, 0, 0, 0, time.Local)},
		{"0 days 10:30", time.Date(2026, time.January, 22, 10, 30, 0, 0, time.Local)},
		{"-7 days 18:00", time.Date(2026, time.January, 15, 18, 0, 0, 0, time.Local)},
	}
	for _, c := range cases {
		got, err := week.Eval(c.rule, anchor)
		if err != nil {
			t.Fatalf("Eval(%s): %v", c.rule, err)
		}
		if !got.Equal(c.want) {
			t.Errorf("Eval(%s) = %s, want %s", c.rule, got, c.want)
		}
	}
	// Re-evaluating the same rule against the same anchor is stable.
	a, _ := week.Eval("-2 days 18:00", anchor)
	b, _ := week.Eval("-2 days 18:00", anchor)
	if !a.Equal(b) {
		t.Fatalf("evaluation not deterministic: %s vs %s", a, b)
	}
}
