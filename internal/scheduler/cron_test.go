package scheduler

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExprValid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"* * * * *",
		"*/5 * * * *",
		"0 12 * * 1-5",
		"15 10 1,15 * *",
		"0,30 9-17 * 1,6,12 0,6",
		"0 9-17/2 * * *",
		"0 8 * * 7",
	} {
		t.Run(expr, func(t *testing.T) {
			t.Parallel()
			_, err := ParseCronExpr(expr)
			require.NoError(t, err)
		})
	}
}

func TestParseCronExprInvalid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
		"1,,2 * * * *",
	} {
		_, err := ParseCronExpr(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestCronExprMatches(t *testing.T) {
	t.Parallel()

	expr := MustParseCronExpr("*/15 9-17 * * 1-5")
	cases := []struct {
		name  string
		time  time.Time
		match bool
	}{
		{"weekday in range", time.Date(2026, time.February, 16, 9, 30, 0, 0, time.UTC), true},
		{"minute not matching interval", time.Date(2026, time.February, 16, 9, 31, 0, 0, time.UTC), false},
		{"hour out of range", time.Date(2026, time.February, 16, 8, 30, 0, 0, time.UTC), false},
		{"weekend excluded", time.Date(2026, time.February, 14, 9, 30, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.match, expr.Matches(tc.time), tc.name)
	}
}

func TestCronExprSundayAsSeven(t *testing.T) {
	t.Parallel()

	expr := MustParseCronExpr("0 8 * * 7")
	assert.True(t, expr.Matches(time.Date(2026, time.February, 15, 8, 0, 0, 0, time.UTC)))
	assert.False(t, expr.Matches(time.Date(2026, time.February, 16, 8, 0, 0, 0, time.UTC)))
}

func TestCronExprDayFieldsAreOred(t *testing.T) {
	t.Parallel()

	expr := MustParseCronExpr("0 0 1 * 1")
	// 2026-02-01 is a Sunday, 2026-02-02 a Monday.
	assert.True(t, expr.Matches(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, expr.Matches(time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, expr.Matches(time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)))
}

func TestCronExprNext(t *testing.T) {
	t.Parallel()

	// 2026-02-13 is a Friday.
	friday := time.Date(2026, time.February, 13, 16, 30, 0, 0, time.UTC)
	cases := []struct {
		expr  string
		after time.Time
		want  time.Time
	}{
		{"0 8 * * *", friday, time.Date(2026, time.February, 14, 8, 0, 0, 0, time.UTC)},
		{"0 13 * * 1-5", friday, time.Date(2026, time.February, 16, 13, 0, 0, 0, time.UTC)},
		{"30 9,11,13,15,17 * * 1-5", friday, time.Date(2026, time.February, 13, 17, 30, 0, 0, time.UTC)},
		{"0 16 * * 5", friday, time.Date(2026, time.February, 20, 16, 0, 0, 0, time.UTC)},
		{"* * * * *", friday.Add(10 * time.Second), friday.Add(time.Minute)},
		{"0 0 29 2 *", friday, time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{"0 0 1 1 *", time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC), time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := MustParseCronExpr(tc.expr).Next(tc.after)
		require.True(t, ok, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestCronExprNextImpossibleDate(t *testing.T) {
	t.Parallel()

	_, ok := MustParseCronExpr("0 0 31 2 *").Next(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestCronExprNextKeepsLocation(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	after := time.Date(2026, time.March, 2, 9, 0, 0, 0, loc)
	got, ok := MustParseCronExpr("0 19 * * *").Next(after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.March, 2, 19, 0, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}
