package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve <name>",
	Short: "Edit a tree over HTTP",
	Long: `Opens an editing session on the tree and exposes it as a JSON API, with change
events on /events and Prometheus metrics on /metrics. With reload enabled, external
changes to the stored tree replace the session tree.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Serve.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("reload") {
			cfg.Serve.Reload, _ = cmd.Flags().GetBool("reload")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)
		streams := arborhttp.NewStreamManager(logger)

		backend, err := cli.NewBackend(cfg, middleware.NewInstrumentation(reg, logger))
		if err != nil {
			return err
		}
		defer backend.Close()

		ed := arbor.New(append(backend.EditorOptions(cfg, logger),
			arbor.WithMetrics(metrics),
			arbor.WithObserver(streams.Observer()),
		)...)

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		session, err := ed.Open(ctx, args[0])
		if err != nil {
			return err
		}
		defer session.Close(context.WithoutCancel(ctx))
		if session.Recovered {
			logger.Warn("serving the default tree, save to create it", "tree", args[0], "err", session.LoadErr)
		}

		server := arborhttp.NewServer(session, arborhttp.WithStreams(streams), arborhttp.WithLogger(logger))
		r := chi.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		r.Mount("/", server.Routes())

		if cfg.Serve.Reload {
			if w, ok := backend.Watchable(); ok {
				go func() {
					if err := cli.WatchTree(ctx, w, args[0], logger, server.ReloadSession); err != nil {
						logger.Error("watch failed", "err", err)
					}
				}()
			}
		}

		srv := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "tree", args[0], "session_id", session.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", args[0], srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutting down", "signal", ctx.Signal())
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Arbor server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().Bool("reload", true, "Reload the session when the stored tree changes")
}
