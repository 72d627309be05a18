package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/javajack/xlaction/internal/config"
	"github.com/javajack/xlaction/jobstore"
	"github.com/javajack/xlaction/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the periodic cleanup sweep",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired uploads and outputs once",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

// openStore builds the store selected by the configuration.
func openStore(ctx context.Context, cfg *config.Config) (jobstore.Store, func() error, error) {
	retention := jobstore.WithRetention(jobstore.Retention{
		Upload: cfg.Store.UploadTTL,
		Output: cfg.Store.OutputTTL,
	})
	switch cfg.Store.Kind {
	case "sql":
		s, err := jobstore.OpenSQL(ctx, cfg.Database.Driver, cfg.Database.URL, retention)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := jobstore.NewDirStore(cfg.Store.DataDir, retention)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(store,
		server.WithLogger(logger),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes()),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Kind))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.Store.CleanupInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Store.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					n, err := srv.Sweep(gctx)
					if err != nil {
						logger.Warn("Cleanup sweep failed", zap.Error(err))
						continue
					}
					logger.Info("Cleanup sweep", zap.Int("deleted", n))
				}
			}
		})
	}
	return g.Wait()
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	logger.Info("Expired files removed", zap.Int("deleted", n))
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d file(s)\n", n)
	return nil
}
