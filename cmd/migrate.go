package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the prediction log schema in the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		// newEnv migrates the store as it opens it.
		env, err := newEnv(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s store.\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
