package services

import (
	"fmt"
	"time"
)

// Frequency names a snapshot schedule.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ScheduleChecker decides whether a snapshot is due. Each frequency has its
// own implementation.
type ScheduleChecker interface {
	// IsDue reports whether a new snapshot should be taken at now, given the
	// time of the last one (zero if none).
	IsDue(last, now time.Time) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return last.In(now.Location()).Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker is due 7 days after the last snapshot.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= 7*24*time.Hour
}

// MonthlyChecker is due once per month, from TargetDay on. A target day
// past the end of a short month falls back to its last day.
type MonthlyChecker struct {
	TargetDay int
}

func (c MonthlyChecker) IsDue(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	last = last.In(now.Location())
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}

	target := c.TargetDay
	if target < 1 {
		target = 1
	}
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if target > lastDayOfMonth {
		target = lastDayOfMonth
	}
	return now.Day() >= target
}

var scheduleStrategies = map[Frequency]ScheduleChecker{
	Daily:   DailyChecker{},
	Weekly:  WeeklyChecker{},
	Monthly: MonthlyChecker{TargetDay: 1},
}

// GetScheduleChecker returns the checker registered for frequency.
func GetScheduleChecker(frequency Frequency) (ScheduleChecker, error) {
	checker, ok := scheduleStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown backup frequency: %s", frequency)
	}
	return checker, nil
}

// RegisterScheduleChecker adds or replaces the checker for frequency.
func RegisterScheduleChecker(frequency Frequency, checker ScheduleChecker) {
	scheduleStrategies[frequency] = checker
}
