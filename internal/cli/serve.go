package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/faircombine/faircombine/internal/api"
	"github.com/faircombine/faircombine/internal/catalog"
	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/engine"
	"github.com/faircombine/faircombine/internal/evaluator"
	"github.com/faircombine/faircombine/internal/logging"
	"github.com/faircombine/faircombine/internal/service"
	"github.com/faircombine/faircombine/internal/store"
)

// newServeCmd creates the serve command, which runs the HTTP service.
func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assessment HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

// runServe assembles the full service stack and blocks until the
// process receives SIGINT or SIGTERM.
func runServe(ctx context.Context, flags *globalFlags) error {
	cfg, err := config.Load(ctx, flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}

	log := logging.Setup(cfg.Logging)
	ctx = log.WithContext(ctx)

	cat, err := catalog.Load(ctx, cfg)
	if err != nil {
		return err
	}

	st, err := store.NewRedisStore(ctx, store.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	registry := evaluator.NewRegistry()
	if err := evaluator.RegisterBuiltins(registry); err != nil {
		return err
	}
	dispatcher := evaluator.NewDispatcher(registry, log)

	svc := service.New(service.Params{
		Catalog:    cat,
		Config:     cfg,
		Store:      st,
		Locks:      engine.NewLockRegistry(cfg.Lock.Timeout),
		Retriever:  evaluator.SubjectRetriever{},
		Dispatcher: dispatcher,
		Log:        log,
	})
	dispatcher.SetReporter(svc)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(svc, st, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight evaluations report before the store goes away.
	dispatcher.Wait()
	return nil
}
