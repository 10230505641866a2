package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/stratigraphie"
	"github.com/meikuraledutech/stratigraphie/postgres"
	"github.com/meikuraledutech/stratigraphie/validator"
	"github.com/meikuraledutech/stratigraphie/worker"
	"github.com/spf13/cobra"
)

type config struct {
	addr        string
	site        string
	databaseURL string
	timeout     time.Duration
	verbose     bool
}

func execute() error {
	cfg := config{}

	root := &cobra.Command{
		Use:          "stratigraphie-server",
		Short:        "Serve a stratigraphic relation validator over HTTP",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if cfg.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.addr, "addr", ":3000", "listen address")
	flags.StringVar(&cfg.site, "site", "default", "site whose snapshot is loaded and saved")
	flags.StringVar(&cfg.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL for snapshots (empty disables persistence)")
	flags.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "per-request wait limit")
	root.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "enable verbose logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func run(ctx context.Context, cfg config) error {
	logger := loggerFromContext(ctx)

	v := validator.New(validator.WithLogger(logger.WithPrefix("validator")))
	h := worker.NewHandler(v, logger.WithPrefix("worker"))
	s := &server{site: cfg.site, timeout: cfg.timeout, logger: logger}

	if cfg.databaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.databaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		s.store = postgres.New(pool)
		h.OnCommit(s.persist)
	} else {
		logger.Warn("DATABASE_URL is not set, snapshots will not be persisted")
	}

	s.worker = worker.New(h)
	s.worker.Start(ctx)
	defer s.worker.Close()

	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	app := newApp(s)
	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("listening", "addr", cfg.addr, "site", cfg.site)
	return app.Listen(cfg.addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// bootstrap rebuilds the graph from the stored snapshot, if any.
func (s *server) bootstrap(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	snap, err := s.store.LoadSnapshot(ctx, s.site)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		s.logger.Info("no stored snapshot", "site", s.site)
		return nil
	}

	resp, err := s.worker.Do(ctx, worker.Request{
		ID:        newCorrelationID(),
		Type:      worker.TypeInit,
		Nodes:     snap.Nodes,
		Relations: snap.Relations,
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("init: %s", resp.Error)
	}
	s.logger.Info("graph restored", "site", s.site, "nodes", len(snap.Nodes), "relations", len(snap.Relations))
	return nil
}

// persist saves the state left by a successful mutation. It is installed
// as the handler's commit hook and runs on the worker goroutine, so saves
// land in mutation order and the stored snapshot is never older than the
// last accepted request.
func (s *server) persist(req worker.Request, snap stratigraphie.Snapshot) error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.store.SaveSnapshot(ctx, s.site, &snap); err != nil {
		return fmt.Errorf("save snapshot for site %q: %w", s.site, err)
	}
	s.logger.Debug("snapshot saved", "site", s.site, "after", req.Type, "relations", len(snap.Relations))
	return nil
}
