// Package week holds the calendar math behind weekly generation: ISO-8601
// week keys, the default business-day anchor for a week, and the relative
// due-rule grammar evaluated against that anchor. Everything here is pure.
package week

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Key identifies an ISO-8601 week, e.g. "2026-W04".
type Key = string

// ParseError reports a malformed week key.
type ParseError struct {
	Key    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid week key %q: %s", e.Key, e.Reason)
}

// RuleError reports a relative due rule that does not match the grammar.
type RuleError struct {
	Rule   string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid due rule %q: %s", e.Rule, e.Reason)
}

var keyPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// KeyOf returns the ISO week key for a date. Weeks start on Monday; week 1
// is the week containing the year's first Thursday.
func KeyOf(date time.Time) Key {
	year, wk := date.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, wk)
}

// ParseKey splits a week key into ISO year and week number, rejecting
// anything that is not exactly YYYY-Www with a week the year actually has.
func ParseKey(key Key) (year, wk int, err error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, &ParseError{Key: key, Reason: "want YYYY-Www"}
	}
	year, _ = strconv.Atoi(m[1])
	wk, _ = strconv.Atoi(m[2])
	if wk < 1 || wk > Weeks(year) {
		return 0, 0, &ParseError{Key: key, Reason: fmt.Sprintf("year %d has %d weeks", year, Weeks(year))}
	}
	return year, wk, nil
}

// Weeks returns the number of ISO weeks in a year (52 or 53). Dec 28 always
// falls in the year's last ISO week.
func Weeks(year int) int {
	_, wk := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return wk
}

// Monday returns the Monday of the given ISO week: Jan 4 is always in week 1,
// so walk back to that week's Monday and step forward.
func Monday(key Key) (time.Time, error) {
	year, wk, err := ParseKey(key)
	if err != nil {
		return time.Time{}, err
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.Local)
	week1Monday := jan4.AddDate(0, 0, 1-isoWeekday(jan4))
	return week1Monday.AddDate(0, 0, 7*(wk-1)), nil
}

// DefaultAnchor returns the default business day for a week: its Thursday.
func DefaultAnchor(key Key) (time.Time, error) {
	monday, err := Monday(key)
	if err != nil {
		return time.Time{}, err
	}
	return monday.AddDate(0, 0, 3), nil
}

// Next returns the key of the following ISO week, rolling into W01 of the
// next year past the year's true 52-or-53 week boundary.
func Next(key Key) (Key, error) {
	year, wk, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	if wk >= Weeks(year) {
		return fmt.Sprintf("%04d-W01", year+1), nil
	}
	return fmt.Sprintf("%04d-W%02d", year, wk+1), nil
}

// isoWeekday maps time.Weekday to ISO numbering, Monday=1 .. Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

var rulePattern = regexp.MustCompile(`^([+-]?\d+)\s*days?\s+(\d{1,2}):(\d{2})$`)

// Rule is a parsed relative due rule: a whole-day offset from the business
// anchor plus a wall-clock time on the resulting day.
type Rule struct {
	Days   int
	Hour   int
	Minute int
}

// ParseRule parses rules of the form "-4 days 20:00" or "+1 days 18:00".
// The sign defaults to + when absent; no leading or trailing garbage.
func ParseRule(rule string) (Rule, error) {
	m := rulePattern.FindStringSubmatch(rule)
	if m == nil {
		return Rule{}, &RuleError{Rule: rule, Reason: "want '<±days> days HH:MM'"}
	}
	days, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	if hour > 23 {
		return Rule{}, &RuleError{Rule: rule, Reason: "hour out of range"}
	}
	if minute > 59 {
		return Rule{}, &RuleError{Rule: rule, Reason: "minute out of range"}
	}
	return Rule{Days: days, Hour: hour, Minute: minute}, nil
}

// At evaluates the rule against an anchor date: anchor plus the day offset,
// at Hour:Minute:00 in the anchor's location. Deterministic; no timezone
// conversion happens.
func (r Rule) At(anchor time.Time) time.Time {
	d := anchor.AddDate(0, 0, r.Days)
	return time.Date(d.Year(), d.Month(), d.Day(), r.Hour, r.Minute, 0, 0, anchor.Location())
}

// Eval parses and evaluates a rule in one step.
func Eval(rule string, anchor time.Time) (time.Time, error) {
	r, err := ParseRule(rule)
	if err != nil {
		return time.Time{}, err
	}
	return r.At(anchor), nil
}
