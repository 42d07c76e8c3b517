package settings

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// Service resolves the effective settings snapshot and applies operator
// updates. Resolution order per key: database row, environment variable
// (uppercased key), compiled default.
type Service struct {
	repo   Repository
	logger *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Snapshot resolves every key into a typed snapshot. A database failure
// degrades to environment/default resolution so the engine keeps running.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	stored, err := s.repo.All(ctx)
	if err != nil {
		s.logger.Warn("settings lookup failed, using environment and defaults", "error", err)
		stored = nil
	}

	snap := Snapshot{
		DailyEmailLimit:   s.intValue(stored, KeyDailyEmailLimit, DefaultDailyEmailLimit),
		MinDelaySeconds:   s.intValue(stored, KeyMinDelaySeconds, DefaultMinDelaySeconds),
		MaxDelaySeconds:   s.intValue(stored, KeyMaxDelaySeconds, DefaultMaxDelaySeconds),
		PauseEveryNEmails: s.intValue(stored, KeyPauseEveryNEmails, DefaultPauseEveryNEmails),
		PauseMinMinutes:   s.intValue(stored, KeyPauseMinMinutes, DefaultPauseMinMinutes),
		PauseMaxMinutes:   s.intValue(stored, KeyPauseMaxMinutes, DefaultPauseMaxMinutes),
		SchedulerInterval: s.intValue(stored, KeySchedulerInterval, DefaultSchedulerInterval),
		ReplyInterval:     s.intValue(stored, KeyReplyInterval, DefaultReplyInterval),
		CalendarLink:      s.stringValue(stored, KeyCalendarLink, DefaultCalendarLink),
	}

	// An inverted delay range would make the pacer misbehave; normalize it
	// instead of failing the tick.
	if snap.MaxDelaySeconds < snap.MinDelaySeconds {
		snap.MaxDelaySeconds = snap.MinDelaySeconds
	}
	if snap.PauseMaxMinutes < snap.PauseMinMinutes {
		snap.PauseMaxMinutes = snap.PauseMinMinutes
	}
	return snap
}

// Update validates and persists a partial update. Only known keys are
// accepted; numeric keys must parse as positive integers.
func (s *Service) Update(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if err := validate(key, value); err != nil {
			return err
		}
	}
	for key, value := range values {
		if err := s.repo.Set(ctx, key, strings.TrimSpace(value)); err != nil {
			return err
		}
		s.logger.Info("setting updated", "key", key)
	}
	return nil
}

func validate(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyDailyEmailLimit, KeyMinDelaySeconds, KeyMaxDelaySeconds,
		KeyPauseEveryNEmails, KeyPauseMinMinutes, KeyPauseMaxMinutes,
		KeySchedulerInterval, KeyReplyInterval:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return apperr.Validation(fmt.Sprintf("%s must be a positive integer", key))
		}
		return nil
	case KeyCalendarLink:
		if value == "" {
			return apperr.Validation("calendar_link must not be empty")
		}
		return nil
	}
	return apperr.Validation(fmt.Sprintf("unknown setting %q", key))
}

func (s *Service) intValue(stored map[string]string, key string, fallback int) int {
	if raw, ok := stored[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			return n
		}
		s.logger.Warn("ignoring malformed stored setting", "key", key)
	}
	if raw := os.Getenv(strings.ToUpper(key)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (s *Service) stringValue(stored map[string]string, key, fallback string) string {
	if raw, ok := stored[key]; ok && strings.TrimSpace(raw) != "" {
		return strings.TrimSpace(raw)
	}
	if raw := os.Getenv(strings.ToUpper(key)); raw != "" {
		return raw
	}
	return fallback
}
