package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice/internal/config"
)

var cfg *config.Config

var (
	directorsFlag string
	moviesFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "boxoffice",
	Short: "Director-based movie revenue prediction",
	Long:  "Matches a director name against a registry, fits that director's budget/revenue history with least squares and predicts revenue for a new budget.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if directorsFlag != "" {
			c.Data.Directors = directorsFlag
		}
		if moviesFlag != "" {
			c.Data.Movies = moviesFlag
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&directorsFlag, "directors", "", "director registry location (default from config)")
	rootCmd.PersistentFlags().StringVar(&moviesFlag, "movies", "", "movie history location (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
