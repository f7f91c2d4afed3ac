package main

import (
	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/cli"
	"github.com/relkit/relkit/internal/logger"
)

// Persistent flag values and the configuration they resolve to.
type rootOptions struct {
	cfgFile  string
	schema   string
	driver   string
	dsn      string
	logLevel string

	cfg        *cli.Config
	configPath string
}

// Command group IDs
const (
	groupQuery   = "query"
	groupUtility = "utility"
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "relkit",
		Short: "Entity graph loading over SQL",
		Long: `relkit - Entity graph loading over SQL

relkit loads entities together with their related entities. To-one
relations are joined into the main query and each to-many relation is
loaded with one batched query.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return opts.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: auto-discover relkit.yaml)")
	flags.StringVar(&opts.schema, "schema", "", "entity registry file (overrides config)")
	flags.StringVar(&opts.driver, "driver", "", "database driver: postgres, pgx, mysql, sqlite, sqlserver")
	flags.StringVar(&opts.dsn, "dsn", "", "database connection string")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddGroup(
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)
	explain := newExplainCmd(opts)
	explain.GroupID = groupQuery
	query := newQueryCmd(opts)
	query.GroupID = groupQuery
	cmd.AddCommand(explain, query)
	cmd.SetHelpCommandGroupID(groupUtility)
	cmd.SetCompletionCommandGroupID(groupUtility)
	return cmd
}

// load resolves the configuration with flag overrides and installs the
// logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, path, err := cli.LoadConfig(o.cfgFile)
	if err != nil {
		return cli.ConfigError("loading configuration", err)
	}
	cfg.Schema = resolveString(o.schema, cfg.Schema)
	cfg.Database.Driver = resolveString(o.driver, cfg.Database.Driver)
	cfg.Database.DSN = resolveString(o.dsn, cfg.Database.DSN)
	cfg.Log.Level = resolveString(o.logLevel, cfg.Log.Level)

	if _, err := logger.Setup(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level); err != nil {
		return cli.ConfigError("configuring logger", err)
	}
	logger.Log.Debug("configuration loaded", "path", path, "driver", cfg.Database.Driver)
	o.cfg, o.configPath = cfg, path
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
