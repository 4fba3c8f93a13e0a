package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mediahook/db"
	"mediahook/internal/config"
	"mediahook/internal/database"
	"mediahook/internal/files"
	"mediahook/internal/handlers"
	"mediahook/internal/image"
	"mediahook/internal/retention"
	"mediahook/internal/server"
	"mediahook/internal/services"
	"mediahook/internal/storage"
	"mediahook/internal/users"
	"mediahook/internal/worker"
)

const shutdownTimeout = 15 * time.Second

type serveOptions struct {
	migrate bool
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	serveOpts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the log retention loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, serveOpts)
		},
	}
	cmd.Flags().BoolVar(&serveOpts.migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, serveOpts *serveOptions) error {
	cfg, log, closeLog, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("app startup",
		zap.String("listen", cfg.ListenAddr()),
		zap.String("media_dir", cfg.MediaDir),
		zap.String("log_dir", cfg.LogDir),
		zap.Bool("webhook_secret_set", cfg.WebhookSecret != ""),
	)

	tg, err := newTelegramBot(cfg, log)
	if err != nil {
		return err
	}

	var (
		execer   storage.Execer
		querier  users.Querier
		dbReason error
	)
	pool, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		dbReason = err
		log.Warn("database unavailable, media will not be stored in postgres", zap.Error(err))
	} else {
		defer pool.Close()
		execer, querier = pool, pool
		if serveOpts.migrate {
			if err := database.RunMigrate(log, cfg.DatabaseURL, db.MigrationsFS, "up"); err != nil {
				return err
			}
		}
	}

	checker, err := newUserChecker(cfg, querier)
	if err != nil {
		return err
	}

	cache := storage.NewMediaCache(int(cfg.CacheMaxEntries))
	if !cache.Bounded() {
		log.Warn("media cache is unbounded; set CACHE_MAX_ENTRIES to cap memory use")
	}

	previewer, err := newPreviewer(cfg)
	if err != nil {
		return err
	}
	fileStore, err := storage.NewFileStore(cfg.MediaDir, previewer, log)
	if err != nil {
		return err
	}
	dbStore := storage.NewDBStore(execer, dbReason, log)

	handler := handlers.NewHandler(
		tg,
		files.NewTelegramFileManager(tg, log),
		cache,
		fileStore,
		dbStore,
		checker,
		log,
	)

	dispatch := worker.NewPool(worker.Config{
		Workers:   int(cfg.DispatchWorkers),
		QueueSize: int(cfg.DispatchQueue),
	}, log)

	srv := server.NewServer(log, cfg.ListenAddr(),
		server.NewWebhookHandler(server.WebhookConfig{
			Secret:       cfg.WebhookSecret,
			SecretHeader: cfg.WebhookSecretHeader,
		}, handler, dispatch, log),
		server.NewAdminHandler(cache, log),
	)

	schedule, err := retention.ParseSchedule(cfg.RetentionSchedule)
	if err != nil {
		return err
	}
	scheduler := retention.NewScheduler(cfg.LogDir, cfg.LogRetention(), schedule, log)

	if cfg.WebhookURL != "" {
		if err := tg.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			log.Error("failed to set webhook on startup", zap.String("url", cfg.WebhookURL), zap.Error(err))
		} else {
			log.Info("webhook registered", zap.String("url", cfg.WebhookURL))
		}
	}

	dispatch.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("app shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Stop(shutdownCtx), dispatch.Stop(shutdownCtx))
	})

	return g.Wait()
}

func newUserChecker(cfg *config.Config, querier users.Querier) (users.Checker, error) {
	if cfg.UserCheck != "postgres" {
		return users.AllowAll{}, nil
	}
	if querier == nil {
		return nil, errors.New("USER_CHECK=postgres requires a reachable DATABASE_URL")
	}
	return users.NewPostgresChecker(querier), nil
}

// newPreviewer returns nil when previews are disabled.
func newPreviewer(cfg *config.Config) (storage.Previewer, error) {
	if cfg.PreviewMaxSide <= 0 {
		return nil, nil
	}
	svc, err := services.NewImageService(&image.Processor{}, int(cfg.PreviewMaxSide), cfg.PreviewSquare)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
