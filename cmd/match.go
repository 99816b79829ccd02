package main

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/boxoffice/internal/resolve"
)

var (
	matchDirector string
	matchTop      int
	matchOutput   string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank registry directors against a name",
	Example: `  boxoffice match --director "nolen"
  boxoffice match --director "spielberg" --top 10 --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("predict"); err != nil {
			return err
		}
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		top := matchTop
		if top <= 0 {
			top = cfg.Match.Top
		}

		env, err := newEnv(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer env.Close()

		reg, err := env.Loader.LoadRegistry(ctx, cfg.Data.Directors)
		if err != nil {
			return err
		}

		matches := resolve.Rank(matchDirector, resolve.Candidates(reg), top)
		return writeMatches(cmd.OutOrStdout(), matchOutput, matches, cfg.Match.MinScore)
	},
}

func writeMatches(out io.Writer, format string, matches []resolve.Match, minScore float64) error {
	switch format {
	case "json":
		if matches == nil {
			matches = []resolve.Match{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	case "table":
		if len(matches) == 0 {
			_, err := io.WriteString(out, "No director candidates.\n")
			return err
		}
		rows := make([][]string, len(matches))
		for i, m := range matches {
			accepted := "no"
			if m.Score >= minScore {
				accepted = "yes"
			}
			rows[i] = []string{
				strconv.Itoa(i + 1),
				m.Name,
				m.ID,
				strconv.FormatFloat(m.Score, 'f', 1, 64),
				accepted,
			}
		}
		_, err := io.WriteString(out, renderTable(
			[]string{"#", "Director", "ID", "Score", "Accepted"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		)+"\n")
		return err
	default:
		return eris.Errorf("unknown output %q (want table or json)", format)
	}
}

func init() {
	matchCmd.Flags().StringVar(&matchDirector, "director", "", "director name to match")
	matchCmd.Flags().IntVar(&matchTop, "top", 0, "number of matches to show (default from config)")
	matchCmd.Flags().StringVarP(&matchOutput, "output", "o", "table", "output format: table or json")
	_ = matchCmd.MarkFlagRequired("director")
	rootCmd.AddCommand(matchCmd)
}
