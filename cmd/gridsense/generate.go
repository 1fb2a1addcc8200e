package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/samyak-umathe/L-THackthon/pkg/generator"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	"github.com/samyak-umathe/L-THackthon/pkg/io/csv"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		feeders int
		days    int
		seed    int64
		start   string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic batch of feeder readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if feeders < 1 || days < 1 {
				return errors.New("feeders and days must be positive")
			}
			from, err := time.Parse(grid.DateLayout, start)
			if err != nil {
				return errors.Wrapf(err, "invalid start date %q", start)
			}

			t := generator.New(
				generator.WithFeeders(feeders),
				generator.WithDays(days),
				generator.WithSeed(seed),
				generator.WithStart(from),
			).Table()

			if output == "-" {
				return csv.Write(cmd.OutOrStdout(), t)
			}
			if err := csv.WriteFile(output, t); err != nil {
				return err
			}
			a.logger.Info("generated readings", "rows", t.Len(), "path", output)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&feeders, "feeders", 100, "number of feeders")
	f.IntVar(&days, "days", 30, "days of readings per feeder")
	f.Int64Var(&seed, "seed", 42, "random seed")
	f.StringVar(&start, "start", "2024-01-01", "first reading day")
	f.StringVarP(&output, "output", "o", "grid_data.csv", "destination CSV file, - for stdout")
	return cmd
}
