package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/btgraph/internal/api"
	"github.com/matzehuels/btgraph/pkg/observability"
	"github.com/matzehuels/btgraph/pkg/observability/promhooks"
	"github.com/matzehuels/btgraph/pkg/storage"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

The server exposes migration, validation and layout of posted documents, and
load/save of documents in the configured store. Prometheus metrics are served
at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := c.Config.Server
			if addr == "" {
				addr = cfg.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			observability.SetPipelineHooks(promhooks.NewPipeline(reg))
			observability.SetCacheHooks(promhooks.NewCache(reg))
			observability.SetHTTPHooks(promhooks.NewHTTP(reg))
			defer observability.Reset()

			runner, err := c.newRunner(ctx, false, "")
			if err != nil {
				return err
			}
			defer runner.Close()

			var store storage.Store
			if !noStore {
				store, err = c.newStore(ctx)
				if err != nil {
					return err
				}
				defer store.Close()
				logger.Info("document store ready", "backend", c.Config.Store.Backend)
			}

			srv := api.New(runner, store, logger, api.Options{
				MaxBodyBytes:    cfg.MaxBodyBytes,
				Metrics:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadTimeout:     cfg.ReadTimeout.Std(),
				WriteTimeout:    cfg.WriteTimeout.Std(),
				ShutdownTimeout: cfg.ShutdownTimeout.Std(),
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the /v1/documents routes")

	return cmd
}
