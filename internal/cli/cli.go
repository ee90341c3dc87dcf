// Package cli provides the fieldsyncd command line interface.
//
// Command structure:
//
//	fieldsyncd serve          # run the sync daemon
//	fieldsyncd drain          # run one drain pass and print the report
//	fieldsyncd queue list     # print queued operations
//	fieldsyncd queue stats    # print per-action queue counts
//	fieldsyncd version        # print version
//
// All commands accept --config pointing at a TOML file.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/fieldsync/internal/api"
	"github.com/kimhsiao/fieldsync/internal/config"
	"github.com/kimhsiao/fieldsync/internal/connectivity"
	"github.com/kimhsiao/fieldsync/internal/dispatch"
	"github.com/kimhsiao/fieldsync/internal/logging"
	"github.com/kimhsiao/fieldsync/internal/metrics"
	"github.com/kimhsiao/fieldsync/internal/queue"
	"github.com/kimhsiao/fieldsync/internal/scheduler"
	"github.com/kimhsiao/fieldsync/internal/staleness"
	"github.com/kimhsiao/fieldsync/internal/store"
)

// Version is the daemon version reported by the version command.
const Version = "0.1.0"

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "fieldsyncd",
		Short:         "Offline-first sync daemon for field CRM clients",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newDrainCmd(&cfgPath),
		newQueueCmd(&cfgPath),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads and validates configuration for a command.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	logging.Init(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	log := logging.Component("daemon")

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	q := queue.New(st, queue.DrainPolicy(cfg.Drain.Policy))
	table := dispatch.NewTable(cfg.Remote.BaseURL, dispatch.DefaultRoutes(),
		&http.Client{Timeout: cfg.Remote.RequestTimeout.Std()})
	monitor := connectivity.NewMonitor(cfg.ProbeURL(), cfg.Connectivity.ProbeInterval.Std())

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}
	hub := api.NewHub()

	sched := scheduler.New(q, table, monitor, collector, hub, &scheduler.Config{
		RetryInterval:  cfg.Drain.RetryInterval.Std(),
		HandlerTimeout: cfg.Drain.HandlerTimeout.Std(),
		EagerDrain:     cfg.Drain.EagerDrain,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor.Start(ctx)
	defer monitor.Stop()
	sched.Start(ctx)
	defer sched.Stop()

	policy, _ := staleness.ByName(cfg.Staleness.Preset)
	syncHandler := api.NewSyncHandler(q, sched, collector)
	pipelineHandler := api.NewPipelineHandler(policy)

	apiServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler: api.NewRouter(syncHandler, pipelineHandler, hub),
	}
	go func() {
		log.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("API server failed")
			stop()
		}
	}()

	var metricsServer *http.Server
	if collector != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Address, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			log.WithField("addr", metricsServer.Addr).Info("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("API server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown failed")
		}
	}
	return nil
}

func newDrainCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one drain pass and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			logging.Init(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

			st, err := store.Open(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			q := queue.New(st, queue.DrainPolicy(cfg.Drain.Policy))
			table := dispatch.NewTable(cfg.Remote.BaseURL, dispatch.DefaultRoutes(),
				&http.Client{Timeout: cfg.Remote.RequestTimeout.Std()})

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Drain.HandlerTimeout.Std())
			defer cancel()

			report, err := q.Drain(ctx, table)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
}

func newQueueCmd(cfgPath *string) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the offline mutation queue",
	}

	queueCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print queued operations in enqueue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List()
			if err != nil {
				return err
			}
			for _, rec := range records {
				line := map[string]interface{}{
					"seq":      rec.Op.Seq,
					"id":       rec.Op.ID,
					"action":   rec.Op.ActionName,
					"attempts": rec.Op.Attempts,
				}
				if rec.Corrupt() {
					line["corrupt"] = true
					line["error"] = rec.Err.Error()
				} else if rec.Op.LastError != "" {
					line["last_error"] = rec.Op.LastError
				}
				if err := printJSON(cmd, line); err != nil {
					return err
				}
			}
			return nil
		},
	})

	queueCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print per-action queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats()
			if err != nil {
				return err
			}
			total, err := st.Len()
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"total":     total,
				"by_action": stats,
			})
		},
	})

	return queueCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fieldsyncd %s\n", Version)
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
