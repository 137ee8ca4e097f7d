package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxNextSearch bounds Next; every valid expression matches within a leap
// cycle.
const maxNextSearch = 5 * 366 * 24 * time.Hour

// CronExpr is a five-field cron expression: minute hour day-of-month month
// day-of-week. Day-of-week is 0-6 with 0 for Sunday; 7 is accepted as Sunday.
type CronExpr struct {
	raw        string
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

func ParseCronExpr(expr string) (CronExpr, error) {
	parts := strings.Fields(strings.TrimSpace(expr))
	if len(parts) != 5 {
		return CronExpr{}, fmt.Errorf("invalid cron expression %q: expected 5 fields", expr)
	}

	minute, err := parseCronField(parts[0], 0, 59)
	if err != nil {
		return CronExpr{}, fmt.Errorf("invalid minute field: %w", err)
	}
	hour, err := parseCronField(parts[1], 0, 23)
	if err != nil {
		return CronExpr{}, fmt.Errorf("invalid hour field: %w", err)
	}
	dayOfMonth, err := parseCronField(parts[2], 1, 31)
	if err != nil {
		return CronExpr{}, fmt.Errorf("invalid day-of-month field: %w", err)
	}
	month, err := parseCronField(parts[3], 1, 12)
	if err != nil {
		return CronExpr{}, fmt.Errorf("invalid month field: %w", err)
	}
	dayOfWeek, err := parseCronField(parts[4], 0, 7)
	if err != nil {
		return CronExpr{}, fmt.Errorf("invalid day-of-week field: %w", err)
	}
	dayOfWeek = foldSunday(dayOfWeek)

	return CronExpr{
		raw:        strings.Join(parts, " "),
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		month:      month,
		dayOfWeek:  dayOfWeek,
	}, nil
}

func MustParseCronExpr(expr string) CronExpr {
	parsed, err := ParseCronExpr(expr)
	if err != nil {
		panic(err)
	}
	return parsed
}

func (e CronExpr) String() string {
	return e.raw
}

// Matches reports whether t, read in its own location, falls on the
// expression. When both day fields are restricted either may match.
func (e CronExpr) Matches(t time.Time) bool {
	if !e.minute.matches(t.Minute()) {
		return false
	}
	if !e.hour.matches(t.Hour()) {
		return false
	}
	if !e.month.matches(int(t.Month())) {
		return false
	}
	return e.dayMatches(t)
}

func (e CronExpr) dayMatches(t time.Time) bool {
	domMatch := e.dayOfMonth.matches(t.Day())
	dowMatch := e.dayOfWeek.matches(int(t.Weekday()))

	switch {
	case e.dayOfMonth.any && e.dayOfWeek.any:
		return domMatch && dowMatch
	case e.dayOfMonth.any:
		return dowMatch
	case e.dayOfWeek.any:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// Next returns the first matching minute strictly after after, in after's
// location. It skips whole months, days and hours that cannot match.
func (e CronExpr) Next(after time.Time) (time.Time, bool) {
	loc := after.Location()
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(maxNextSearch)

	for !t.After(limit) {
		if !e.month.matches(int(t.Month())) {
			t = advance(t, time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc))
			continue
		}
		if !e.dayMatches(t) {
			t = advance(t, time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc))
			continue
		}
		if !e.hour.matches(t.Hour()) {
			t = advance(t, time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc))
			continue
		}
		if !e.minute.matches(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// advance guards against wall-clock jumps that land at or before from.
func advance(from, to time.Time) time.Time {
	if !to.After(from) {
		return from.Add(time.Minute)
	}
	return to
}

type cronField struct {
	min     int
	max     int
	any     bool
	allowed []bool
}

func (f cronField) matches(value int) bool {
	if value < f.min || value > f.max {
		return false
	}
	return f.allowed[value-f.min]
}

// foldSunday maps day-of-week 7 onto 0.
func foldSunday(f cronField) cronField {
	if f.allowed[7] {
		f.allowed[0] = true
	}
	f.max = 6
	f.allowed = f.allowed[:7]
	return f
}

func parseCronField(raw string, min int, max int) (cronField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cronField{}, fmt.Errorf("empty field")
	}

	field := cronField{
		min:     min,
		max:     max,
		allowed: make([]bool, max-min+1),
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return cronField{}, fmt.Errorf("empty list item")
		}

		base, step := part, 1
		if idx := strings.Index(part, "/"); idx >= 0 {
			n, err := strconv.Atoi(part[idx+1:])
			if err != nil {
				return cronField{}, fmt.Errorf("invalid interval %q", part)
			}
			if n <= 0 {
				return cronField{}, fmt.Errorf("interval must be > 0")
			}
			base, step = part[:idx], n
		}

		start, end, err := parseCronRange(base, min, max)
		if err != nil {
			return cronField{}, err
		}
		if base == "*" && step == 1 {
			field.any = true
		}
		for value := start; value <= end; value += step {
			field.allowed[value-min] = true
		}
	}

	for _, allowed := range field.allowed {
		if allowed {
			return field, nil
		}
	}
	return cronField{}, fmt.Errorf("no values matched")
}

func parseCronRange(part string, min, max int) (int, int, error) {
	if part == "*" {
		return min, max, nil
	}
	if strings.Contains(part, "-") {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return 0, 0, fmt.Errorf("invalid range %q", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q", part)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range end %q", part)
		}
		if start > end {
			return 0, 0, fmt.Errorf("range start must be <= range end")
		}
		if start < min || end > max {
			return 0, 0, fmt.Errorf("range %d-%d out of bounds (%d-%d)", start, end, min, max)
		}
		return start, end, nil
	}

	value, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", part)
	}
	if value < min || value > max {
		return 0, 0, fmt.Errorf("value %d out of bounds (%d-%d)", value, min, max)
	}
	return value, value, nil
}
