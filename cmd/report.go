package cmd

import (
	"slices"
	"time"

	statusadapter "github.com/bnema/pacer/internal/adapters/render/status"
	"github.com/bnema/pacer/internal/application"
	"github.com/bnema/pacer/internal/domain"
	"github.com/spf13/cobra"
)

func newReportCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show activity, quota usage and safety alerts for the last 24 hours",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			journal, err := app.openJournal(ctx)
			if err != nil {
				return err
			}
			if journal != nil {
				defer func() { _ = journal.Close() }()
			}

			recorder, err := app.history(ctx, journal)
			if err != nil {
				return err
			}

			monitor := app.safetyMonitor()
			monitor.CheckCompliance(recorder)

			now := app.now()
			report := statusadapter.Report{
				Username: app.cfg.Account.Username,
				Safety:   monitor.Report(),
				Stats:    recorder.Stats(),
				Quotas:   quotaUsage(app.cfg.RateLimits, recorder, now),
			}

			if asJSON {
				return writeJSON(cmd, report)
			}

			return writeRendered(cmd, func() (string, error) {
				return app.reportRenderer(report, statusadapter.RenderOptions{Now: now})
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func quotaUsage(limits domain.RateLimitConfig, recorder *application.Recorder, now time.Time) []statusadapter.Quota {
	if !limits.Enabled {
		return nil
	}

	types := make([]domain.ActionType, 0, len(limits.Limits))
	for actionType := range limits.Limits {
		types = append(types, actionType)
	}
	slices.Sort(types)

	quotas := make([]statusadapter.Quota, 0, len(types))
	for _, actionType := range types {
		limit := limits.Limits[actionType]
		quotas = append(quotas, statusadapter.Quota{
			Type:   actionType,
			Used:   recorder.CountSince(actionType, now.Add(-limit.Window.Duration())),
			Max:    limit.Max,
			Window: limit.Window,
		})
	}

	return quotas
}
