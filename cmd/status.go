package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	statusadapter "github.com/bnema/engagement-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var target string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show requests known to the running ea serve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var entries []domain.RequestEntry
			if target = strings.TrimSpace(target); target != "" {
				req, err := app.remote.Status(cmd.Context(), domain.TargetID(target))
				if err != nil {
					return err
				}
				entries = append(entries, req.Entry())
			} else {
				reqs, err := app.remote.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, req := range reqs {
					entries = append(entries, req.Entry())
				}
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}

			rendered, err := app.renderRequests(entries, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "only show the request on this target")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	return cmd
}

func newFailuresCmd(app *app) *cobra.Command {
	var target string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Show why actions of the latest request on a target failed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := domain.TargetID(strings.TrimSpace(target))
			failures, err := app.remote.Failures(cmd.Context(), id)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, failures)
			}

			rendered, err := app.renderFailures(id, failures, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render failures: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "target identifier")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func newAbortCmd(app *app) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Stop the active request on a target before its next step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := domain.TargetID(strings.TrimSpace(target))
			if err := app.remote.Abort(cmd.Context(), id); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Abort requested for %s, no further actions will be sent.\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "target identifier")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
