package domain

import (
	"errors"
	"time"
)

type ComplianceStatus string

const (
	ComplianceSafe    ComplianceStatus = "SAFE"
	ComplianceWarning ComplianceStatus = "WARNING"
)

type AlertKind string

const (
	AlertDailyLimitExceeded AlertKind = "daily_limit_exceeded"
	AlertLowSuccessRate     AlertKind = "low_success_rate"
	AlertHighErrorRate      AlertKind = "high_error_rate"
)

type Alert struct {
	Kind     AlertKind
	Message  string
	RaisedAt time.Time
}

type SafetyReport struct {
	GeneratedAt     time.Time
	Alerts          []Alert
	Status          ComplianceStatus
	Recommendations []string
}

type SafetyConfig struct {
	MaxDailyActions int
	// MinSuccessRate is a percentage in [0, 100].
	MinSuccessRate  float64
	MaxHourlyErrors int
}

func DefaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		MaxDailyActions: 100,
		MinSuccessRate:  80,
		MaxHourlyErrors: 5,
	}
}

func (c SafetyConfig) Validate() error {
	var errs []error
	if c.MaxDailyActions < 0 {
		errs = append(errs, errors.New("safety.max_daily_actions must be >= 0"))
	}
	if c.MinSuccessRate < 0 || c.MinSuccessRate > 100 {
		errs = append(errs, errors.New("safety.min_success_rate must be within [0, 100]"))
	}
	if c.MaxHourlyErrors < 0 {
		errs = append(errs, errors.New("safety.max_hourly_errors must be >= 0"))
	}

	return errors.Join(errs...)
}
