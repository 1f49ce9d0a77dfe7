package status

import (
	"fmt"
	"slices"

	"github.com/bnema/pacer/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const quotaBarWidth = 20

// Quota is the usage of one rate-limited action type.
type Quota struct {
	Type   domain.ActionType
	Used   int
	Max    int
	Window domain.Window
}

type Report struct {
	Username string
	Safety   domain.SafetyReport
	Stats    domain.Stats
	Quotas   []Quota
}

// RenderReport renders activity, quota usage and safety alerts.
func RenderReport(report Report, opts RenderOptions) (string, error) {
	return render(func(s styles) string {
		return reportView(report, opts, s)
	})
}

func reportView(report Report, opts RenderOptions, s styles) string {
	statusStyle := s.good
	if report.Safety.Status == domain.ComplianceWarning {
		statusStyle = s.warning
	}

	lines := []string{
		s.title.Render("Safety report: " + report.Username),
		s.header.Render("status: ") + statusStyle.Render(string(report.Safety.Status)),
		s.section.Render(activitySection(report.Stats, opts, s)),
	}
	if len(report.Quotas) > 0 {
		lines = append(lines, s.section.Render(quotaSection(report.Quotas, s)))
	}
	lines = append(lines, s.section.Render(alertSection(report.Safety, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func activitySection(stats domain.Stats, opts RenderOptions, s styles) string {
	lines := []string{s.sectionKey.Render("Activity")}
	if stats.TotalActions == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(lines, s.empty.Render("No actions recorded."))...)
	}

	lines = append(lines, field("actions", fmt.Sprintf("%d (%d ok, %.1f%% success)", stats.TotalActions, stats.SuccessfulActions, stats.OverallSuccessRate), s))

	types := make([]domain.ActionType, 0, len(stats.ByType))
	for actionType := range stats.ByType {
		types = append(types, actionType)
	}
	slices.Sort(types)
	for _, actionType := range types {
		byType := stats.ByType[actionType]
		lines = append(lines, field("  "+string(actionType), fmt.Sprintf("%d (%.1f%% success)", byType.Total, byType.SuccessRate), s))
	}
	lines = append(lines, field("last action", formatAgo(stats.LastAction, opts.Now), s))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func quotaSection(quotas []Quota, s styles) string {
	lines := []string{s.sectionKey.Render("Quotas")}
	for _, quota := range quotas {
		lines = append(lines, quotaLine(quota, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func quotaLine(quota Quota, s styles) string {
	left := max(quota.Max-quota.Used, 0)
	fraction := 0.0
	if quota.Max > 0 {
		fraction = float64(left) / float64(quota.Max)
	}

	leftStyle := lipgloss.NewStyle().Foreground(interpolateColor(fraction, 0, 1))
	meta := leftStyle.Render(fmt.Sprintf("%d left", left))
	if left == 0 {
		meta = s.warning.Render("exhausted")
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.label.Render(fmt.Sprintf("%-15s", string(quota.Type))),
		renderProgressBar(fraction, quotaBarWidth, s),
		" ",
		meta,
		" ",
		s.header.Render(fmt.Sprintf("(%d/%d per %s)", quota.Used, quota.Max, quota.Window.Label())),
	)
}

func alertSection(report domain.SafetyReport, s styles) string {
	lines := []string{s.sectionKey.Render("Alerts")}
	if len(report.Alerts) == 0 {
		lines = append(lines, s.empty.Render("No alerts."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, alert := range report.Alerts {
		lines = append(lines, s.warning.Render("! "+alert.Message))
	}

	lines = append(lines, "", s.sectionKey.Render("Recommendations"))
	for _, recommendation := range report.Recommendations {
		lines = append(lines, s.detail.Render("- "+recommendation))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
