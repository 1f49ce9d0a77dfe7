package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	"github.com/spf13/cobra"
)

var errQuotaExhausted = errors.New("action quota exhausted")

func newActionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Run paced platform actions",
	}

	cmd.AddCommand(newActionRunCmd(app))

	return cmd
}

func newActionRunCmd(app *app) *cobra.Command {
	var actionType string
	var method string
	var path string
	var rawParams []string
	var body string
	var allowLogin bool
	var bypassValidation bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one platform request as a rate-limited action",
		Example: `  pacer action run --type like --method POST --path /api/v1/media/42/like
  pacer action run --type read --path /api/v1/feed --param limit=20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			kind := domain.ActionType(strings.ToLower(strings.TrimSpace(actionType)))
			if kind == "" {
				return errors.New("--type must not be empty")
			}
			if !strings.HasPrefix(path, "/") {
				return errors.New("--path must start with /")
			}
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}
			request := ports.Request{Method: strings.ToUpper(method), Path: path, Params: params}
			if body != "" {
				if !json.Valid([]byte(body)) {
					return errors.New("--body must be valid JSON")
				}
				request.Body = json.RawMessage(body)
			}

			client, err := app.platformClient()
			if err != nil {
				return err
			}

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
			executor := app.executor(recorder, journal)
			if remaining, limited := executor.Remaining(kind); limited && remaining == 0 {
				return quotaError(app, kind)
			}

			handle, err := acquireHandle(ctx, app.sessionService(client), allowLogin, bypassValidation)
			if err != nil {
				return err
			}

			response, performed, err := executor.Request(ctx, handle, kind, request)
			for _, alert := range app.safetyMonitor().CheckCompliance(executor.Recorder()) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", alert.Message)
			}
			if err != nil {
				return err
			}
			if !performed {
				return quotaError(app, kind)
			}

			return writeResponse(cmd, response)
		},
	}

	cmd.Flags().StringVar(&actionType, "type", "", "Action type used for quotas (like|follow|unfollow|comment|post|direct_message|...)")
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&path, "path", "", "API path relative to platform.base_url")
	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "Request parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&body, "body", "", "JSON request body")
	cmd.Flags().BoolVar(&allowLogin, "allow-login", false, "Allow a fresh login when the stored session is unusable")
	cmd.Flags().BoolVar(&bypassValidation, "bypass-validation", false, "Trust a fresh stored session without probing the platform")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func parseParams(raw []string) (url.Values, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	params := url.Values{}
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", pair)
		}
		params.Add(key, value)
	}

	return params, nil
}

func quotaError(app *app, kind domain.ActionType) error {
	limit, _ := app.cfg.RateLimits.LimitFor(kind)
	return fmt.Errorf("%w: %s (%d per %s)", errQuotaExhausted, kind, limit.Max, limit.Window.Label())
}

func writeResponse(cmd *cobra.Command, response ports.Response) error {
	if len(response.Body) == 0 {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "status %d\n", response.StatusCode)
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, response.Body, "", "  "); err != nil {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(response.Body))
		return err
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return err
}
