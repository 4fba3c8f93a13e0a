package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile    string
	configFile string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serveOpts := &serveOptions{}

	root := &cobra.Command{
		Use:          "mediahook",
		Short:        "Telegram webhook receiver that stores incoming photos and videos",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, serveOpts)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "optional YAML config file (default $CONFIG_FILE)")

	root.AddCommand(
		newServeCmd(opts),
		newWebhookCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}
