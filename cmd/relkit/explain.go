package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/connect"
	"github.com/relkit/relkit/internal/cli"
)

func newExplainCmd(root *rootOptions) *cobra.Command {
	var (
		lo      loadOptions
		dialect string
	)
	cmd := &cobra.Command{
		Use:   "explain <entity>",
		Short: "Print the SQL a load would run",
		Long: `Print the statements a load of the entity would run: the main query
with every to-one relation joined in, then one batched query per to-many
relation. No database connection is made.`,
		Example: `  relkit explain Cake --with bakery --with bakers
  relkit explain Cake --dialect mysql --id 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := connect.Dialect(resolveString(dialect, root.cfg.Database.Driver))
			if err != nil {
				return cli.ConfigError("resolving dialect", err)
			}
			reg, err := root.registry()
			if err != nil {
				return err
			}
			l, err := lo.newLoader(reg, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, q := range l.Queries(name) {
				fmt.Fprintf(out, "%s;\n", q)
			}
			return nil
		},
	}
	lo.bind(cmd)
	cmd.Flags().StringVar(&dialect, "dialect", "", "render for this driver instead of the configured one")
	return cmd
}
