package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/samyak-umathe/L-THackthon/pkg/io/csv"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		input  string
		output string
		influx bool
		kafka  bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a CSV batch and deliver the augmented table",
		Long: `Reads a batch of feeder-day readings, appends anomaly and failure-risk
columns, writes the result to the enabled sinks and prints the run report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if influx {
				a.cfg.Influx.Enabled = true
			}
			if kafka {
				a.cfg.Kafka.Enabled = true
			}

			t, err := csv.ReadFile(input)
			if err != nil {
				return err
			}

			out, rep, err := a.pipeline().Run(t)
			if err != nil {
				return errors.Wrapf(err, "failed to score %s", input)
			}
			if rep.Degraded() {
				a.logger.Warn("degraded run",
					"anomaly", rep.Anomaly.Reason,
					"risk", rep.Risk.Reason)
			}

			sinks, err := buildSinks(cmd.Context(), a.cfg, output)
			if err != nil {
				return err
			}
			defer sinks.Close()

			if err := sinks.Write(cmd.Context(), out); err != nil {
				return err
			}
			a.logger.Info("scored batch",
				"run_id", rep.RunID,
				"rows", rep.Rows,
				"suspicious", rep.Suspicious,
				"sinks", sinks.Len())

			return a.print(cmd.OutOrStdout(), rep)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "CSV file of feeder readings")
	f.StringVarP(&output, "output", "o", "", "write the augmented table to this CSV file")
	f.BoolVar(&influx, "influx", false, "write scored readings to InfluxDB")
	f.BoolVar(&kafka, "kafka", false, "publish alerts to Kafka")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
