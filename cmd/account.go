package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	statusadapter "github.com/bnema/engagement-accounts-cli/internal/adapters/render/status"
	"github.com/bnema/engagement-accounts-cli/internal/application"
	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage the account roster",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
		newAccountLimitCmd(app),
		newAccountToggleCmd(app, "disable", true),
		newAccountToggleCmd(app, "enable", false),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured accounts in roster order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.accounts.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, accounts)
			}

			rendered, err := app.renderAccounts(accounts, app.registry.Engaged(), statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render accounts: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newAccountAddCmd(app *app) *cobra.Command {
	var id, name, proxy, session string
	var sessionStdin bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account or update an existing one",
		Long:  "Add an account or update an existing one. The session credential is kept in the secret store, only its reference is written to the roster.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionStdin {
				if session != "" {
					return errors.New("use either --session or --session-stdin")
				}
				value, err := readSecretLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				session = value
			}

			roster, err := app.accounts.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			accountID, err := accountIDFor(id, roster)
			if err != nil {
				return err
			}

			account, err := app.accounts.Add(cmd.Context(), application.AddAccountCommand{
				ID:      accountID,
				Name:    strings.TrimSpace(name),
				Proxy:   strings.TrimSpace(proxy),
				Session: session,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved account %s (%s)\n", account.DisplayName(), account.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "account id (empty or 0 assigns the next free number)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&proxy, "proxy", "", "proxy URL the bridge uses for this account")
	cmd.Flags().StringVar(&session, "session", "", "session credential to store")
	cmd.Flags().BoolVar(&sessionStdin, "session-stdin", false, "read the session credential from stdin")

	return cmd
}

func newAccountLimitCmd(app *app) *cobra.Command {
	var id string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Keep an account out of selection for a while (0 clears)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accountID := domain.AccountID(strings.TrimSpace(id))
			if err := app.accounts.LimitFor(cmd.Context(), accountID, duration); err != nil {
				return err
			}

			if duration <= 0 {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Cleared limit on %s\n", accountID)
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Limited %s for %s\n", accountID, domain.FormatWait(duration))
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "account id")
	cmd.Flags().DurationVar(&duration, "for", 0, "how long to keep the account out, e.g. 30m")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAccountToggleCmd(app *app, use string, disabled bool) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s an account for new requests", strings.ToUpper(use[:1])+use[1:]),
		RunE: func(cmd *cobra.Command, _ []string) error {
			accountID := domain.AccountID(strings.TrimSpace(id))
			if err := app.accounts.SetDisabled(cmd.Context(), accountID, disabled); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Account %s %sd\n", accountID, use)
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "account id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read session from stdin: %w", err)
	}

	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		return "", errors.New("session from stdin is empty")
	}
	return value, nil
}
