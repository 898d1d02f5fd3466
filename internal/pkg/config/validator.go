package config

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts five-field expressions and descriptors like "@every 5m".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return errors.New("invalid cron schedule: cannot be empty")
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// ValidateTimezone checks an IANA zone name against the local tz database.
func ValidateTimezone(name string) error {
	if name == "" {
		return errors.New("invalid timezone: cannot be empty")
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", name, err)
	}
	return nil
}

func ValidateDuration(d, lo, hi time.Duration) error { return inRange("duration", d, lo, hi) }

func ValidateIntRange(v, lo, hi int) error { return inRange("value", v, lo, hi) }

// inRange checks lo <= v <= hi, bounds included.
func inRange[T cmp.Ordered](what string, v, lo, hi T) error {
	switch {
	case lo > hi:
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", lo, hi)
	case v < lo:
		return fmt.Errorf("%s %v is below minimum %v", what, v, lo)
	case v > hi:
		return fmt.Errorf("%s %v exceeds maximum %v", what, v, hi)
	}
	return nil
}
