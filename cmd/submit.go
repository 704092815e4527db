package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bnema/engagement-accounts-cli/internal/adapters/api"
	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

type submitOptions struct {
	kind   string
	amount string
	target string
	user   string
	remote bool
}

func newSubmitCmd(app *app) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run a bulk request on a target",
		Long: `Run a bulk request on a target. One eligible account acts per step and steps are
spaced by request.step_delay.

By default the request runs in this process and the command waits for the final report;
Ctrl-C aborts it before the next step. With --remote the request is handed to a running
ea serve and the command returns once it is registered.`,
		Example: `  ea submit --kind upvote --amount 5 --target t3_abc --user alice
  ea submit --kind comment --amount all --target t3_abc --user alice --remote`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := domain.ParseActionKind(opts.kind)
			if err != nil {
				return err
			}
			amount, err := domain.ParseAmount(opts.amount)
			if err != nil {
				return err
			}

			submit := application.SubmitCommand{
				Kind:   kind,
				Amount: amount,
				Target: domain.TargetID(strings.TrimSpace(opts.target)),
				User:   domain.UserID(strings.TrimSpace(opts.user)),
			}

			if opts.remote {
				return submitRemote(cmd, app, submit)
			}
			return submitLocal(cmd, app, submit)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "", "action kind: comment, upvote or downvote")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "number of accounts to use, or \"all\"")
	cmd.Flags().StringVar(&opts.target, "target", "", "target identifier")
	cmd.Flags().StringVar(&opts.user, "user", defaultUser(), "user the request is made for")
	cmd.Flags().BoolVar(&opts.remote, "remote", false, "submit to a running ea serve instead of running locally")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func submitLocal(cmd *cobra.Command, app *app, submit application.SubmitCommand) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, err := app.orchestrator.Submit(ctx, submit)
	if err != nil {
		return err
	}

	label := fmt.Sprintf("Sending %d %s to %s", exec.Entry.Amount, submit.Kind.Label(), submit.Target)
	progress := func() string {
		entry, ok := app.orchestrator.Status(submit.Target)
		if !ok || entry.ID != exec.Entry.ID {
			return ""
		}
		return fmt.Sprintf("(%d/%d)", entry.Executed(), entry.Amount)
	}

	if err := runSubmitSpinner(ctx, cmd.ErrOrStderr(), label, progress, exec); err != nil && ctx.Err() == nil {
		slog.Debug("progress display stopped", "target", submit.Target, "error", err)
	}

	var report domain.Report
	select {
	case <-exec.Done():
		report = exec.Report()
	default:
		if abortErr := app.orchestrator.Abort(submit.Target); abortErr != nil {
			return fmt.Errorf("abort interrupted request: %w", abortErr)
		}
		report, err = exec.Wait(context.WithoutCancel(cmd.Context()))
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), report.Message())
	return err
}

func submitRemote(cmd *cobra.Command, app *app, submit application.SubmitCommand) error {
	created, err := app.remote.Submit(cmd.Context(), api.SubmitRequest{
		Kind:   string(submit.Kind),
		Amount: api.Amount{AmountSpec: submit.Amount},
		Target: string(submit.Target),
		User:   string(submit.User),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Accepted: %d %s for %s (request %s), last step in %s\n",
		created.Amount,
		created.Kind.Label(),
		created.Target,
		created.ID,
		domain.FormatWait(created.EstimatedCompletionAt.Sub(app.now())),
	)
	return err
}

func defaultUser() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "local"
}
