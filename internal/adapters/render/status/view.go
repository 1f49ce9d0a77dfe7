package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/pacer/internal/application"
	"github.com/bnema/pacer/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
}

// RenderSession renders the stored session of one account.
func RenderSession(info application.SessionInfo, opts RenderOptions) (string, error) {
	return render(func(s styles) string {
		return sessionView(info, opts, s)
	})
}

func sessionView(info application.SessionInfo, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Session: " + info.Username),
		s.header.Render("state: ") + stateStyle(info.State, s).Render(string(info.State)),
	}

	if info.State == domain.SessionStateAbsent {
		lines = append(lines, s.empty.Render("No stored session. Run `pacer session acquire --allow-login`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	next := s.detail.Render("allowed now")
	if info.LoginRateLimited {
		next = s.warning.Render(formatUntil(info.NextLoginAllowedAt, opts.Now))
	}

	expires := "never"
	if !info.ExpiresAt.IsZero() {
		expires = formatUntil(info.ExpiresAt, opts.Now)
		if info.State == domain.SessionStateStale {
			expires = "expired " + formatAgo(info.ExpiresAt, opts.Now)
		}
	}

	details := []string{
		field("created", formatAgo(info.CreatedAt, opts.Now), s),
		field("expires", expires, s),
		field("last validated", formatAgo(info.LastValidated, opts.Now), s),
		field("last fresh login", formatAgo(info.LastFreshLogin, opts.Now), s),
		field("logins", fmt.Sprintf("%d", info.LoginCount), s),
		s.label.Render("next fresh login: ") + next,
		field("device", valueOr(info.DeviceID, "n/a"), s),
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, details...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stateStyle(state domain.SessionState, s styles) lipgloss.Style {
	switch state {
	case domain.SessionStateValid:
		return s.good
	case domain.SessionStateStale:
		return s.warning
	default:
		return s.empty
	}
}

func field(label string, value string, s styles) string {
	return s.label.Render(label+": ") + s.detail.Render(value)
}

func valueOr(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func formatAt(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.Format("15:04")
	}

	return at.Format("15:04 on 02 Jan")
}

func formatUntil(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return formatAt(at, now)
	}
	if !at.After(now) {
		return "now"
	}

	return fmt.Sprintf("in %s (%s)", humanDuration(at.Sub(now)), formatAt(at, now))
}

func formatAgo(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	if now.IsZero() {
		return formatAt(at, now)
	}
	if at.After(now) {
		return formatAt(at, now)
	}

	elapsed := now.Sub(at)
	if elapsed < time.Minute {
		return "just now"
	}

	return humanDuration(elapsed) + " ago"
}

// humanDuration rounds up to the largest whole unit.
func humanDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return plural(int(math.Ceil(d.Minutes())), "minute")
	case d < 24*time.Hour:
		return plural(int(math.Ceil(d.Hours())), "hour")
	default:
		return plural(int(math.Ceil(d.Hours()/24)), "day")
	}
}

func plural(n int, unit string) string {
	if n < 1 {
		n = 1
	}
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func renderProgressBar(leftFraction float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clamp(leftFraction, 0, 1)))
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := clamp((value-min)/(max-min), 0, 1)
	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
