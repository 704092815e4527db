package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	app := &app{}
	opts := wireOptions{}

	rootCmd := &cobra.Command{
		Use:           "ea",
		Short:         "Engagement accounts CLI (ea): spread actions across a pool of accounts",
		Long:          "ea runs bulk engagement requests (comments, upvotes, downvotes) on a target, one account at a time with a fixed delay between actions, and keeps track of per-user cooldowns and which account already acted where.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipWiringAnnotation] != "" {
				return nil
			}

			opts.LogOutput = cmd.ErrOrStderr()
			wired, err := wireApp(opts)
			if err != nil {
				return err
			}
			*app = *wired
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if app.cfg == nil {
				return nil
			}
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.engage/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.ServerAddr, "server", "", "address of a running `ea serve` (default serve.addr)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSubmitCmd(app),
		newAbortCmd(app),
		newStatusCmd(app),
		newFailuresCmd(app),
		newAccountCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
