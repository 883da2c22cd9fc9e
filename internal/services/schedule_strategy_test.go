package services

import (
	"testing"
	"time"
)

func TestDailyChecker_IsDue(t *testing.T) {
	checker := DailyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{name: "never taken - is due", last: time.Time{}, want: true},
		{name: "taken today - not due", last: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), want: false},
		{name: "taken yesterday - is due", last: time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.last, now); got != tt.want {
				t.Errorf("DailyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyChecker_UsesNowLocation(t *testing.T) {
	luanda := time.FixedZone("WAT", 3600)
	// 23:30 UTC on the 14th is already the 15th in Luanda
	last := time.Date(2024, 1, 14, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, luanda)

	if (DailyChecker{}).IsDue(last, now) {
		t.Error("DailyChecker.IsDue() = true for a snapshot taken earlier the same local day")
	}
}

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{name: "never taken - is due", last: time.Time{}, want: true},
		{name: "taken 3 days ago - not due", last: time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), want: false},
		{name: "taken 7 days ago - is due", last: time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), want: true},
		{name: "taken 10 days ago - is due", last: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.last, now); got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	tests := []struct {
		name    string
		checker MonthlyChecker
		last    time.Time
		now     time.Time
		want    bool
	}{
		{
			name:    "never taken - is due",
			checker: MonthlyChecker{TargetDay: 10},
			now:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			want:    true,
		},
		{
			name:    "taken this month - not due",
			checker: MonthlyChecker{TargetDay: 10},
			last:    time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			want:    false,
		},
		{
			name:    "new month but before target day - not due",
			checker: MonthlyChecker{TargetDay: 15},
			last:    time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC),
			want:    false,
		},
		{
			name:    "new month and on target day - is due",
			checker: MonthlyChecker{TargetDay: 15},
			last:    time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC),
			want:    true,
		},
		{
			name:    "target day 31 in February - adjusts to 29",
			checker: MonthlyChecker{TargetDay: 31},
			last:    time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			want:    true,
		},
		{
			name:    "zero target day means the first",
			checker: MonthlyChecker{},
			last:    time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 1, 0, 5, 0, 0, time.UTC),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker.IsDue(tt.last, tt.now); got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetScheduleChecker(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Monthly} {
		if _, err := GetScheduleChecker(f); err != nil {
			t.Errorf("GetScheduleChecker(%q) error = %v", f, err)
		}
	}
	if _, err := GetScheduleChecker("hourly"); err == nil {
		t.Error("GetScheduleChecker(hourly) expected error")
	}
}
