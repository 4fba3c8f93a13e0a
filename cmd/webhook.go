package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediahook/internal/bot"
)

func newWebhookCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Register or remove the Telegram webhook",
	}

	set := &cobra.Command{
		Use:   "set [url]",
		Short: "Point Telegram at url (default $WEBHOOK_URL) with the configured secret",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			url := cfg.WebhookURL
			if len(args) == 1 {
				url = args[0]
			}
			if url == "" {
				return errors.New("no webhook url given and WEBHOOK_URL is not set")
			}
			if cfg.BotToken == "" {
				return bot.ErrNoToken
			}

			tg, err := newTelegramBot(cfg, log)
			if err != nil {
				return err
			}
			if err := tg.SetWebhook(cmd.Context(), url, cfg.WebhookSecret); err != nil {
				return err
			}
			log.Info("webhook registered", zap.String("url", url), zap.Bool("secret_set", cfg.WebhookSecret != ""))
			return nil
		},
	}

	var dropPending bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			if cfg.BotToken == "" {
				return bot.ErrNoToken
			}
			tg, err := newTelegramBot(cfg, log)
			if err != nil {
				return err
			}
			if err := tg.DeleteWebhook(cmd.Context(), dropPending); err != nil {
				return err
			}
			log.Info("webhook deleted", zap.Bool("drop_pending", dropPending))
			return nil
		},
	}
	del.Flags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued on the Telegram side")

	cmd.AddCommand(set, del)
	return cmd
}
