// Command svcwatchd runs the service-watchdog daemon: it probes every
// configured service on a fixed tick, restarts the ones that fail, and
// notifies configured channels on state transitions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/svcwatchd/internal/api"
	"github.com/loykin/svcwatchd/internal/clock"
	"github.com/loykin/svcwatchd/internal/config"
	"github.com/loykin/svcwatchd/internal/controller"
	"github.com/loykin/svcwatchd/internal/history"
	historyfactory "github.com/loykin/svcwatchd/internal/history/factory"
	"github.com/loykin/svcwatchd/internal/logger"
	"github.com/loykin/svcwatchd/internal/metrics"
	"github.com/loykin/svcwatchd/internal/notifier"
	"github.com/loykin/svcwatchd/internal/pidfile"
	"github.com/loykin/svcwatchd/internal/probe"
	"github.com/loykin/svcwatchd/internal/scheduler"
	"github.com/loykin/svcwatchd/internal/statestore"
	"github.com/loykin/svcwatchd/internal/supervisor"
	"github.com/loykin/svcwatchd/internal/watchstate"
)

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func main() {
	var configPath string

	root := &cobra.Command{Use: "svcwatchd"}
	root.PersistentFlags().StringVar(&configPath, "config", "/etc/svcwatchd/config.yaml", "path to the YAML config file")

	root.AddCommand(
		newRunCmd(&configPath),
		newValidateCmd(&configPath),
		newInitCmd(),
		newStatusCmd(&configPath),
		newRestartOneCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watchdog daemon (in the background when the config sets daemon: true)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*configPath, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log actions without executing restart commands")
	return cmd
}

func run(configPath string, dryRunFlag bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dryRunFlag {
		cfg.DryRun = true
	}

	if cfg.Daemon {
		if err := daemonize(); err != nil {
			return err
		}
	}

	lcfg := logger.Config{}
	if cfg.Log != nil {
		lcfg = *cfg.Log
	}
	log, closer, err := logger.New(lcfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info("svcwatchd starting", "services", len(cfg.Services), "dry_run", cfg.DryRun)

	if cfg.DryRun {
		log.Info("dry run: skipping pid file write")
	} else if err := pidfile.Write(cfg.PidFile); err != nil {
		log.Warn("failed to write pid file", "path", cfg.PidFile, "err", err)
	} else if cfg.PidFile != "" {
		defer func() {
			if err := pidfile.Remove(cfg.PidFile); err != nil {
				log.Warn("failed to remove pid file", "path", cfg.PidFile, "err", err)
			}
		}()
	}

	store := statestore.New(cfg.StateFile, log)
	ctrl := controller.New(cfg.DryRun)
	clk := clock.Real{}
	sup := supervisor.New(ctrl, clk)
	prober := probe.New()

	var sinks []scheduler.EventSink

	registry := notifier.NewRegistry()
	var notifiers []notifier.Sink
	for _, nc := range cfg.Notifiers {
		sink, err := registry.Build(nc)
		if err != nil {
			log.Warn("skipping notifier", "type", nc.Type, "err", err)
			continue
		}
		notifiers = append(notifiers, sink)
	}
	if len(notifiers) > 0 {
		sinks = append(sinks, notifier.NewDispatcher(notifiers, log))
	}

	if cfg.History != nil && cfg.History.Enabled {
		hsink, err := historyfactory.NewSinkFromDSN(cfg.History.DSN)
		if err != nil {
			log.Warn("history sink disabled", "err", err)
		} else {
			sinks = append(sinks, history.NewEventSink(hsink, log.Warn))
		}
	}

	var metricsReg *metrics.Metrics
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsReg = metrics.New()
		if reg, ok := prometheus.DefaultRegisterer.(*prometheus.Registry); ok {
			metricsReg.Register(reg)
		}
		sinks = append(sinks, metricsReg)
	}

	sched := scheduler.New(cfg.Services, prober, sup, store, sinks, clk, log)
	sched.DryRun = cfg.DryRun

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.API != nil && cfg.API.Enabled {
		enabled := make(map[string]bool, len(cfg.Services))
		for _, s := range cfg.Services {
			enabled[s.Name] = s.Enabled
		}
		apiSrv := api.New(sched, enabled)
		httpSrv := &http.Server{Addr: cfg.API.Listen, Handler: apiSrv.Handler()}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("api server stopped", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = httpSrv.Close()
		}()
	}

	sched.Run(ctx)
	log.Info("svcwatchd stopped")
	return nil
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			fmt.Printf("config OK: %d service(s), %d notifier(s)\n", len(cfg.Services), len(cfg.Notifiers))
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return os.WriteFile(out, []byte(starterConfig), 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "svcwatchd.yaml", "path to write the starter config to")
	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted watchdog state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			store := statestore.New(cfg.StateFile, nil)
			st := store.Load(func() watchstate.WatchdogState { return *watchstate.New(time.Now()) })

			type row struct {
				Name                string `json:"name"`
				Enabled             bool   `json:"enabled"`
				ConsecutiveFailures int    `json:"consecutive_failures"`
				Alerted             bool   `json:"alerted"`
				RestartCount        int    `json:"restart_count"`
				PendingRestart      bool   `json:"pending_restart"`
			}
			var rows []row
			for _, svc := range cfg.Services {
				var svcState watchstate.ServiceState
				if p := st.Services[svc.Name]; p != nil {
					svcState = *p
				}
				rows = append(rows, row{
					Name:                svc.Name,
					Enabled:             svc.Enabled,
					ConsecutiveFailures: svcState.ConsecutiveFailures,
					Alerted:             svcState.Alerted,
					RestartCount:        svcState.RestartCount,
					PendingRestart:      svcState.PendingRestartAt != nil,
				})
			}
			printJSON(map[string]any{"started_at": st.StartedAt, "services": rows})
			return nil
		},
	}
}

func newRestartOneCmd(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "restart-one",
		Short: "Immediately run the restart command for one configured service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			for _, svc := range cfg.Services {
				if svc.Name != name {
					continue
				}
				ctrl := controller.New(cfg.DryRun)
				res := ctrl.Restart(context.Background(), svc)
				printJSON(map[string]any{"ran": res.Ran, "exit_code": res.ExitCode, "output": res.Output, "error": errString(res.Err)})
				return nil
			}
			return fmt.Errorf("no service named %q in config", name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "service name to restart")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

const starterConfig = `# svcwatchd starter configuration
state_file: /var/lib/svcwatchd/state.yaml
pid_file: /var/run/svcwatchd.pid
dry_run: false
daemon: false

services:
  - name: example-web
    health_url: http://127.0.0.1:8080/health
    health_timeout: 10s
    check_interval: 30s
    failure_threshold: 2
    restart_delay: 60s
    max_restarts: 3
    restart_window: 1h
    restart_cmd: "systemctl restart example-web"

notifiers:
  - type: webhook
    enabled: false
    url: https://example.org/hooks/svcwatchd
    on_failure: true
    on_recovery: true
    on_restart: true

metrics:
  enabled: false
  listen: ":9090"

api:
  enabled: false
  listen: ":8090"

log:
  level: info
`
