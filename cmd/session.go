package cmd

import (
	"context"
	"fmt"
	"time"

	statusadapter "github.com/bnema/pacer/internal/adapters/render/status"
	"github.com/bnema/pacer/internal/application"
	"github.com/spf13/cobra"
)

type acquireResult struct {
	Username   string
	FreshLogin bool
	AcquiredAt time.Time
	CreatedAt  time.Time
	LoginCount int
	DeviceID   string
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and maintain the platform session",
	}

	cmd.AddCommand(newSessionStatusCmd(app), newSessionAcquireCmd(app), newSessionRefreshCmd(app))

	return cmd
}

func newSessionStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the platform",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := app.sessionService(nil).Info(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, info)
			}

			return writeRendered(cmd, func() (string, error) {
				return app.sessionRenderer(info, statusadapter.RenderOptions{Now: app.now()})
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newSessionAcquireCmd(app *app) *cobra.Command {
	var allowLogin bool
	var bypassValidation bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Resume the stored session, logging in again only when allowed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.platformClient()
			if err != nil {
				return err
			}
			service := app.sessionService(client)

			label := "Acquiring session"
			if info, infoErr := service.Info(cmd.Context()); infoErr == nil {
				label = acquireLabel(info, app.now(), allowLogin, bypassValidation)
			}

			var handle *application.Handle
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context) error {
				var acquireErr error
				handle, acquireErr = acquireHandle(ctx, service, allowLogin, bypassValidation)
				return acquireErr
			})
			if err != nil {
				return err
			}

			return writeHandle(cmd, handle, asJSON)
		},
	}

	cmd.Flags().BoolVar(&allowLogin, "allow-login", false, "Allow a fresh login when the stored session is unusable")
	cmd.Flags().BoolVar(&bypassValidation, "bypass-validation", false, "Trust a fresh stored session without probing the platform")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newSessionRefreshCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force a fresh login, ignoring the login interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.platformClient()
			if err != nil {
				return err
			}
			service := app.sessionService(client)

			label := "Logging in"
			if info, infoErr := service.Info(cmd.Context()); infoErr == nil {
				label = refreshLabel(info)
			}

			var handle *application.Handle
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context) error {
				var refreshErr error
				handle, refreshErr = service.ForceRefresh(ctx)
				return refreshErr
			})
			if err != nil {
				return err
			}

			return writeHandle(cmd, handle, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func acquireHandle(ctx context.Context, service *application.SessionService, allowLogin bool, bypassValidation bool) (*application.Handle, error) {
	if bypassValidation {
		return service.AcquireHandleBypassValidation(ctx, allowLogin)
	}

	return service.AcquireHandle(ctx, allowLogin)
}

func writeHandle(cmd *cobra.Command, handle *application.Handle, asJSON bool) error {
	record := handle.Record()
	result := acquireResult{
		Username:   handle.Username(),
		FreshLogin: handle.FreshLogin(),
		AcquiredAt: handle.AcquiredAt(),
		CreatedAt:  record.CreatedAt,
		LoginCount: record.LoginCount,
		DeviceID:   record.Device.DeviceID,
	}

	if asJSON {
		return writeJSON(cmd, result)
	}

	how := "resumed stored session"
	if result.FreshLogin {
		how = "logged in"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (logins: %d)\n", result.Username, how, result.LoginCount)
	return err
}
