package timeutil

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func TestNextDailyRun(t *testing.T) {
	loc := mustLoc(t, "Europe/Berlin")

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "morning_runs_today",
			now:  time.Date(2026, 2, 4, 9, 30, 0, 0, loc),
			want: time.Date(2026, 2, 4, 12, 0, 0, 0, loc),
		},
		{
			name: "exactly_at_run_time_runs_tomorrow",
			now:  time.Date(2026, 2, 4, 12, 0, 0, 0, loc),
			want: time.Date(2026, 2, 5, 12, 0, 0, 0, loc),
		},
		{
			name: "afternoon_runs_tomorrow",
			now:  time.Date(2026, 2, 4, 18, 0, 0, 0, loc),
			want: time.Date(2026, 2, 5, 12, 0, 0, 0, loc),
		},
		{
			name: "month_rollover",
			now:  time.Date(2026, 1, 31, 13, 0, 0, 0, loc),
			want: time.Date(2026, 2, 1, 12, 0, 0, 0, loc),
		},
		{
			name: "dst_start",
			now:  time.Date(2026, 3, 28, 12, 30, 0, 0, loc),
			want: time.Date(2026, 3, 29, 12, 0, 0, 0, loc),
		},
		{
			name: "input_in_other_zone",
			now:  time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 2, 4, 12, 0, 0, 0, loc),
		},
	}

	for _, tc := range cases {
		got := NextDailyRun(tc.now, 12, loc)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestNextDailyRunNilLocation(t *testing.T) {
	now := time.Date(2026, 2, 4, 1, 0, 0, 0, time.UTC)
	got := NextDailyRun(now, 12, nil)
	want := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		then time.Time
		want int
	}{
		{"same_instant", now, 0},
		{"future", now.Add(time.Hour), 0},
		{"just_under_a_day", now.Add(-23*time.Hour - 59*time.Minute), 0},
		{"exactly_seven_days", now.AddDate(0, 0, -7), 7},
		{"thirty_days_and_change", now.Add(-30*24*time.Hour - 5*time.Hour), 30},
	}

	for _, tc := range cases {
		if got := DaysSince(tc.then, now); got != tc.want {
			t.Fatalf("%s: DaysSince = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	got := DaysAgo(now, 3)
	if want := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestLoadLocation(t *testing.T) {
	if LoadLocation("") != time.UTC {
		t.Fatal("empty zone should be UTC")
	}
	if LoadLocation("Not/AZone") != time.UTC {
		t.Fatal("unknown zone should fall back to UTC")
	}
	if got := LoadLocation("Asia/Shanghai").String(); got != "Asia/Shanghai" {
		t.Fatalf("expected Asia/Shanghai, got %s", got)
	}
}

func TestParseRFC3339(t *testing.T) {
	cases := []string{
		"2026-02-01T01:23:45Z",
		"2026-02-01T01:23:45.123Z",
		"2026-02-01T01:23:45+08:00",
	}
	for _, value := range cases {
		if _, err := ParseRFC3339(value); err != nil {
			t.Fatalf("expected parse to succeed for %s: %v", value, err)
		}
	}
	if _, err := ParseRFC3339(""); err == nil {
		t.Fatal("expected error for empty value")
	}
}
