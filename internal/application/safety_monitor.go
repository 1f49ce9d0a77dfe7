package application

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
)

const (
	dailyLimitAlert     = "Daily action limit exceeded"
	lowSuccessRateAlert = "Low success rate detected - possible rate limiting"
	highErrorRateAlert  = "High error rate in the last hour"
)

// ActionHistory is the view of recorded actions the safety checks need.
type ActionHistory interface {
	TotalSince(since time.Time) int
	FailuresSince(since time.Time) int
	Stats() domain.Stats
}

var _ ActionHistory = (*Recorder)(nil)

var recommendationRules = []struct {
	keyword        string
	recommendation string
}{
	{keyword: "limit", recommendation: "Reduce automation frequency"},
	{keyword: "error", recommendation: "Check account status and API connectivity"},
	{keyword: "success rate", recommendation: "Implement longer delays between actions"},
}

// SafetyMonitor reviews action history against conservative thresholds.
// Raised alerts accumulate for the life of the monitor.
type SafetyMonitor struct {
	cfg    domain.SafetyConfig
	clock  ports.Clock
	logger *slog.Logger

	mu     sync.Mutex
	alerts []domain.Alert
}

func NewSafetyMonitor(cfg domain.SafetyConfig, clock ports.Clock, logger *slog.Logger) *SafetyMonitor {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SafetyMonitor{cfg: cfg, clock: clock, logger: logger}
}

// CheckCompliance returns the alerts raised by this review.
func (m *SafetyMonitor) CheckCompliance(history ActionHistory) []domain.Alert {
	now := m.clock.Now()
	var raised []domain.Alert

	if daily := history.TotalSince(now.Add(-24 * time.Hour)); daily > m.cfg.MaxDailyActions {
		raised = append(raised, domain.Alert{Kind: domain.AlertDailyLimitExceeded, Message: dailyLimitAlert, RaisedAt: now})
		m.logger.Warn("daily action limit exceeded", "actions", daily, "max", m.cfg.MaxDailyActions)
	}

	stats := history.Stats()
	if stats.TotalActions > 0 && stats.OverallSuccessRate < m.cfg.MinSuccessRate {
		raised = append(raised, domain.Alert{Kind: domain.AlertLowSuccessRate, Message: lowSuccessRateAlert, RaisedAt: now})
		m.logger.Warn("low success rate", "success_rate", fmt.Sprintf("%.1f", stats.OverallSuccessRate), "min", m.cfg.MinSuccessRate)
	}

	if failures := history.FailuresSince(now.Add(-time.Hour)); failures > m.cfg.MaxHourlyErrors {
		raised = append(raised, domain.Alert{Kind: domain.AlertHighErrorRate, Message: highErrorRateAlert, RaisedAt: now})
		m.logger.Warn("high error rate", "failures_last_hour", failures, "max", m.cfg.MaxHourlyErrors)
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, raised...)
	m.mu.Unlock()

	return raised
}

func (m *SafetyMonitor) Alerts() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.alerts)
}

func (m *SafetyMonitor) Report() domain.SafetyReport {
	alerts := m.Alerts()

	status := domain.ComplianceSafe
	if len(alerts) > 0 {
		status = domain.ComplianceWarning
	}

	return domain.SafetyReport{
		GeneratedAt:     m.clock.Now(),
		Alerts:          alerts,
		Status:          status,
		Recommendations: recommendations(alerts),
	}
}

func recommendations(alerts []domain.Alert) []string {
	var out []string
	for _, rule := range recommendationRules {
		for _, alert := range alerts {
			if strings.Contains(strings.ToLower(alert.Message), rule.keyword) {
				out = append(out, rule.recommendation)
				break
			}
		}
	}

	return out
}
