package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-go/trackstore/internal/config"
	"github.com/vango-go/trackstore/pkg/inspector"
	"github.com/vango-go/trackstore/pkg/observe"
	"github.com/vango-go/trackstore/pkg/store"
)

func replCmd(configPath *string) *cobra.Command {
	var (
		statePath string
		inspect   string
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session on one store",
		Long: `Start an interactive session on one store.

Paths are dot separated; list elements are addressed by index and
"length" reads a list's length. Values are JSON, and anything that
is not valid JSON is taken as a string.

Commands:
  get <path>          print the value at path (. for the whole state)
  set <path> <value>  set a map key or list element
  del <path>          delete a map key or remove a list element
  push <path> <value> append to the list at path
  inc <path> [n]      add n (default 1) to the number at path
  dec <path> [n]      subtract n (default 1) from the number at path
  watch [path]        subscribe to path, or list subscriptions
  unwatch <n>         drop subscription n
  dump                print the whole state
  help                show this help
  quit                leave

Examples:
  trackstore repl
  trackstore repl --state seed.yaml
  trackstore repl --inspect localhost:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if inspect != "" {
				cfg.Inspector.Enabled = true
			}
			return runREPL(cmd.Context(), cfg, statePath, inspect)
		},
	}

	cmd.Flags().StringVarP(&statePath, "state", "s", "", "Initial state file (.json, .yaml or .yml)")
	cmd.Flags().StringVarP(&inspect, "inspect", "i", "", "Serve the inspector on this address (default from config)")

	return cmd
}

func runREPL(ctx context.Context, cfg *config.Config, statePath, inspect string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	initial := map[string]any{}
	if statePath != "" {
		seed, err := loadState(statePath)
		if err != nil {
			return err
		}
		initial = seed
	}

	var opts []store.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, store.WithObserver(observe.NewMetrics(
			observe.WithNamespace(cfg.Metrics.Namespace),
		)))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, store.WithObserver(observe.NewTracing(
			observe.WithTracerName(cfg.Tracing.TracerName),
		)))
	}

	st, err := store.New(cfg.Name, initial, nil, opts...)
	if err != nil {
		return err
	}

	if cfg.Inspector.Enabled {
		addr := inspect
		if addr == "" {
			addr = cfg.InspectorAddress()
		}
		stop, err := serveInspector(st, addr, cfg.Metrics.Enabled)
		if err != nil {
			return err
		}
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := newREPL(ctx, st, os.Stdout)
	r.prompt = true
	return r.run(os.Stdin)
}

// serveInspector starts the inspector on addr and returns a function that
// shuts it down.
func serveInspector(st *store.Store, addr string, metrics bool) (func(), error) {
	insp := inspector.New()
	if err := insp.Watch(st); err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	if metrics {
		router.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	}
	router.Mount("/", insp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Default().Error("inspector stopped", "addr", addr, "error", err)
		}
	}()
	success("Inspector on http://%s", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		insp.Close()
		srv.Shutdown(ctx)
	}, nil
}
