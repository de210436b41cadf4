package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/refresh"
)

var (
	watchListen   string
	watchSchedule string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the database in sync on a schedule",
	Long: `Sync the project on a cron schedule until interrupted and serve
Prometheus metrics on /metrics and a liveness probe on /healthz.

The schedule accepts standard cron specs and descriptors such as "@every 30s".`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Metrics listen address (default: metrics_listen from config, \"off\" disables)")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Cron schedule (default: refresh from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	id := projectID(cfg)
	if id == "" {
		return errors.New("no project selected, pass --project or set project_id in the config file")
	}
	schedule := watchSchedule
	if schedule == "" {
		schedule = cfg.RefreshCron
	}
	listen := watchListen
	if listen == "" {
		listen = cfg.MetricsListen
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	syncer := refresh.NewSyncer(client, database, id, refresh.NewMetrics(reg))
	scheduler, err := refresh.NewScheduler(syncer, schedule)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if listen != "off" {
		srv = newMetricsServer(listen, reg)
		go func() {
			log.Info().Str("addr", listen).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
				stop()
			}
		}()
	}

	scheduler.OnSync(func(err error) {
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s synced %s\n", nowFunc().Format(time.TimeOnly), id)
		}
	})
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	scheduler.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}
	return nil
}

// newMetricsServer serves reg on /metrics and a liveness probe on /healthz
func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
