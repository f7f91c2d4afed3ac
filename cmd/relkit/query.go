package main

import (
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/connect"
	"github.com/relkit/relkit/dialect/sql"
	"github.com/relkit/relkit/internal/cli"
	"github.com/relkit/relkit/internal/logger"
)

func newQueryCmd(root *rootOptions) *cobra.Command {
	var lo loadOptions
	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "Load entities with their relations and print them as JSON",
		Long: `Load the entity and the requested relations and print the graph as
JSON. With --id a single object is printed, otherwise an array.`,
		Example: `  relkit query Bakery --with cakes --limit 10
  relkit query Cake --with bakery --id 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db := root.cfg.Database
			if db.DSN == "" {
				return cli.ConfigError("no database configured", nil)
			}
			reg, err := root.registry()
			if err != nil {
				return err
			}
			l, err := lo.newLoader(reg, args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			opts := connect.Options{
				MaxOpenConns:    db.MaxOpenConns,
				MaxIdleConns:    db.MaxIdleConns,
				ConnMaxLifetime: db.ConnMaxLifetime,
				SlowThreshold:   db.SlowThreshold,
			}
			if db.Metrics {
				opts.Registerer = prometheus.DefaultRegisterer
			}
			drv, err := connect.Open(ctx, db.Driver, db.DSN, opts)
			if err != nil {
				return cli.DBConnectError("connecting to database", err)
			}
			defer func() { _ = drv.Close() }()
			l = l.WithLogger(logger.Log)

			var result any
			if len(lo.ids) > 0 {
				ex, err := l.One(ctx, drv)
				if err != nil {
					return cli.GeneralError("loading", err)
				}
				if ex == nil {
					return cli.GeneralError("no "+args[0]+" with the given id", nil)
				}
				result = ex
			} else {
				all, err := l.All(ctx, drv)
				if err != nil {
					return cli.GeneralError("loading", err)
				}
				result = all
			}
			if s, ok := drv.(*sql.StatsDriver); ok {
				logger.Log.Debug("query statistics", "stats", s.QueryStats().Stats().String())
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	lo.bind(cmd)
	return cmd
}
