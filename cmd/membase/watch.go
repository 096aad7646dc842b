package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/metric"
	"github.com/ThatForkyDev/membase/query"
	"github.com/ThatForkyDev/membase/store"
)

type watchOptions struct {
	IDField       string
	ConfigPath    string
	TTL           time.Duration
	ResetOnAccess bool
	Query         string
	Interval      time.Duration
	Timeout       time.Duration
	MetricsAddr   string
}

func newWatchCmd(cli *cliOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <fixture>",
		Short: "Load a fixture into an expiring store and report until it drains",
		Long: `Load a JSON or YAML list of records into a synchronized expiring store
and log every expiration. With --query the query runs every interval, which
keeps matching records alive when --reset-on-access is set. The command
ends when the store is empty, the timeout passes or it is interrupted, and
prints the store statistics.`,
		Example: `  membase watch sessions.yaml --ttl 30s --query 'user~admin' --reset-on-access
  membase watch sessions.json --config store.yaml --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runWatch(ctx, cmd.OutOrStdout(), cli.logger, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.IDField, "id", "",
		"Record field holding the identity; records are identified by content when empty")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "",
		"Store configuration file (YAML or JSON); must select expiring_synchronized")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 10*time.Second, "Record lifetime when --config is not set")
	cmd.Flags().BoolVar(&opts.ResetOnAccess, "reset-on-access", false,
		"Restart a record's lifetime whenever the query returns it, when --config is not set")
	cmd.Flags().StringVar(&opts.Query, "query", "", "Query expression evaluated every interval")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "Report interval")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Stop after this long, 0 to wait until the store drains")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func (o *watchOptions) storeConfig() (store.Config, error) {
	config := store.DefaultConfig()
	config.Type = store.TypeExpiringSynchronized
	config.Expiration = store.ExpirationConfig{TTL: o.TTL, ResetOnAccess: o.ResetOnAccess}

	if o.ConfigPath != "" {
		loaded, err := store.LoadConfig(o.ConfigPath)
		if err != nil {
			return config, err
		}
		config = loaded
	}

	if config.Type != store.TypeExpiringSynchronized {
		return config, errors.WrapInvalid(errors.ErrInvalidConfig, "watch", "Config",
			fmt.Sprintf("watch needs a %s store, got %s", store.TypeExpiringSynchronized, config.Type))
	}
	if o.MetricsAddr != "" {
		config.Metrics.Enabled = true
	}
	if o.Interval <= 0 {
		return config, errors.WrapInvalid(errors.ErrInvalidConfig, "watch", "Config",
			"interval must be positive")
	}
	return config, config.Validate()
}

func runWatch(ctx context.Context, out io.Writer, logger *slog.Logger, opts *watchOptions, fixture string) error {
	if logger == nil {
		logger = slog.Default()
	}

	config, err := opts.storeConfig()
	if err != nil {
		return err
	}

	var q query.Query
	var names []string
	if opts.Query != "" {
		if q, names, err = parseQuery(opts.Query); err != nil {
			return err
		}
	}

	records, err := loadFixture(fixture, opts.IDField)
	if err != nil {
		return err
	}

	var registry *metric.MetricsRegistry
	if config.Metrics.Enabled {
		registry = metric.NewMetricsRegistry()
	}

	s, err := store.NewFromConfig(config, registry,
		store.WithLogger[record](logger),
		store.WithIdentity(recordIdentity(opts.IDField)),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, name := range names {
		if _, err := s.CreateIndex(name, indexSpec{name: name, field: name}.definition()); err != nil {
			return err
		}
	}

	s.OnRemoval(store.CauseExpired, func(r record) {
		logger.Info("record expired", "record", describe(r, opts.IDField))
	})

	_, err = s.AddAll(records...)
	logIndexingFailures(logger, err)
	logger.Info("watching fixture", "fixture", fixture, "members", s.Size(),
		"ttl", config.Expiration.TTL, "reset_on_access", config.Expiration.ResetOnAccess)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var server *metric.Server
	if registry != nil && opts.MetricsAddr != "" {
		server = metric.NewServer(opts.MetricsAddr, "", registry)
		if err := server.Listen(); err != nil {
			return err
		}
		logger.Info("serving metrics", "url", server.Address())
	}

	g, gctx := errgroup.WithContext(ctx)
	if server != nil {
		g.Go(server.Serve)
	}
	g.Go(func() error {
		watch(gctx, s, q, opts.Interval, logger)
		if server != nil {
			return server.Stop()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	if err := enc.Encode(s.Stats().Summary()); err != nil {
		return err
	}
	return enc.Close()
}

// watch reports on s every interval until it drains or ctx ends.
func watch(ctx context.Context, s store.Store[record], q query.Query, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if s.IsEmpty() {
			logger.Info("store drained")
			return
		}

		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "reason", context.Cause(ctx), "members", s.Size())
			return
		case <-ticker.C:
			if q == nil {
				logger.Info("store status", "members", s.Size())
				continue
			}
			logger.Info("store status", "members", s.Size(), "matches", len(s.Get(q)))
		}
	}
}

func describe(r record, idField string) string {
	if idField != "" {
		return fmt.Sprint(r[idField])
	}
	return fmt.Sprint(map[string]any(r))
}
