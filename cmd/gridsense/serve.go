package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/samyak-umathe/L-THackthon/pkg/cache"
	"github.com/samyak-umathe/L-THackthon/pkg/metrics"
	"github.com/samyak-umathe/L-THackthon/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scoring API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := cache.New(ctx, a.cfg.Cache)
			if err != nil {
				return err
			}
			defer store.Close()

			sinks, err := buildSinks(ctx, a.cfg, "")
			if err != nil {
				return err
			}
			defer sinks.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			opts := []server.Option{
				server.WithCache(store),
				server.WithMetrics(metrics.New(reg), reg),
				server.WithLogger(a.logger),
				server.WithMaxBodyBytes(a.cfg.Server.MaxBodyBytes),
				server.WithTariff(a.cfg.Summary.TariffPerKWh),
			}
			if sinks.Len() > 0 {
				opts = append(opts, server.WithSink(sinks))
			}

			a.logger.Info("starting server",
				"addr", a.cfg.Server.Addr,
				"cache", a.cfg.Cache.Backend,
				"sinks", sinks.Len())
			return server.New(a.pipeline(), opts...).ListenAndServe(ctx, a.cfg.Server)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
