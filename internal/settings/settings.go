// Package settings provides the runtime-tunable configuration for the
// outreach engine. Values live in the app_settings table, fall back to
// environment variables, and finally to compiled defaults, so the engine
// always has a usable snapshot even on a fresh database.
package settings

import "time"

// Setting keys. The same names are used for the database rows and the
// environment fallback (uppercased).
const (
	KeyDailyEmailLimit   = "daily_email_limit"
	KeyMinDelaySeconds   = "min_delay_seconds"
	KeyMaxDelaySeconds   = "max_delay_seconds"
	KeyPauseEveryNEmails = "pause_every_n_emails"
	KeyPauseMinMinutes   = "pause_min_minutes"
	KeyPauseMaxMinutes   = "pause_max_minutes"
	KeySchedulerInterval = "scheduler_interval_seconds"
	KeyReplyInterval     = "reply_check_interval_seconds"
	KeyCalendarLink      = "calendar_link"
)

// Compiled defaults, used when neither the database nor the environment
// provides a value.
const (
	DefaultDailyEmailLimit   = 500
	DefaultMinDelaySeconds   = 60
	DefaultMaxDelaySeconds   = 120
	DefaultPauseEveryNEmails = 20
	DefaultPauseMinMinutes   = 5
	DefaultPauseMaxMinutes   = 8
	DefaultSchedulerInterval = 300
	DefaultReplyInterval     = 300
	DefaultCalendarLink      = "https://calendly.com/your-link"
)

// Interval floors. Operator values below these are clamped so a typo cannot
// turn the periodic jobs into a busy loop.
const (
	MinSchedulerInterval = 30 * time.Second
	MinReplyInterval     = 60 * time.Second
)

// Snapshot is a typed, validated view of the settings at one point in time.
type Snapshot struct {
	DailyEmailLimit   int    `json:"daily_email_limit"`
	MinDelaySeconds   int    `json:"min_delay_seconds"`
	MaxDelaySeconds   int    `json:"max_delay_seconds"`
	PauseEveryNEmails int    `json:"pause_every_n_emails"`
	PauseMinMinutes   int    `json:"pause_min_minutes"`
	PauseMaxMinutes   int    `json:"pause_max_minutes"`
	SchedulerInterval int    `json:"scheduler_interval_seconds"`
	ReplyInterval     int    `json:"reply_check_interval_seconds"`
	CalendarLink      string `json:"calendar_link"`
}

// Defaults returns a snapshot populated entirely from compiled defaults.
func Defaults() Snapshot {
	return Snapshot{
		DailyEmailLimit:   DefaultDailyEmailLimit,
		MinDelaySeconds:   DefaultMinDelaySeconds,
		MaxDelaySeconds:   DefaultMaxDelaySeconds,
		PauseEveryNEmails: DefaultPauseEveryNEmails,
		PauseMinMinutes:   DefaultPauseMinMinutes,
		PauseMaxMinutes:   DefaultPauseMaxMinutes,
		SchedulerInterval: DefaultSchedulerInterval,
		ReplyInterval:     DefaultReplyInterval,
		CalendarLink:      DefaultCalendarLink,
	}
}

// SchedulerTick returns the effective scheduler interval, clamped to the floor.
func (s Snapshot) SchedulerTick() time.Duration {
	d := time.Duration(s.SchedulerInterval) * time.Second
	if d < MinSchedulerInterval {
		return MinSchedulerInterval
	}
	return d
}

// ReplyTick returns the effective reply-check interval, clamped to the floor.
func (s Snapshot) ReplyTick() time.Duration {
	d := time.Duration(s.ReplyInterval) * time.Second
	if d < MinReplyInterval {
		return MinReplyInterval
	}
	return d
}
