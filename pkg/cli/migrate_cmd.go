package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	internaldb "taskflow/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pools, err := openStore(opts)
			if err != nil {
				return err
			}
			defer pools.Close() //nolint:errcheck

			v, err := internaldb.MigrationVersion(pools.Write.DB)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"db": opts.cfg.DBPath, "version": v})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", opts.cfg.DBPath, v)
			return err
		},
	}
}
