package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/samyak-umathe/L-THackthon/pkg/io/csv"
	"github.com/samyak-umathe/L-THackthon/pkg/summary"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		input  string
		limit  int
		tariff float64
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Score a CSV batch and print aggregate figures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tariff <= 0 {
				tariff = a.cfg.Summary.TariffPerKWh
			}

			t, err := csv.ReadFile(input)
			if err != nil {
				return err
			}
			out, _, err := a.pipeline().Run(t)
			if err != nil {
				return errors.Wrapf(err, "failed to score %s", input)
			}

			s, err := summary.Compute(out, summary.WithTariff(tariff), summary.WithLimit(limit))
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), s)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "CSV file of feeder readings")
	f.IntVar(&limit, "limit", 10, "maximum flagged rows to list, 0 for all")
	f.Float64Var(&tariff, "tariff", 0, "rupees per kWh (default from config)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
