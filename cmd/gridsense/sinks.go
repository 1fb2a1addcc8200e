package main

import (
	"context"

	"github.com/samyak-umathe/L-THackthon/pkg/config"
	gsio "github.com/samyak-umathe/L-THackthon/pkg/io"
	"github.com/samyak-umathe/L-THackthon/pkg/io/csv"
	"github.com/samyak-umathe/L-THackthon/pkg/io/influx"
	"github.com/samyak-umathe/L-THackthon/pkg/io/kafka"
)

// buildSinks returns the sinks enabled by cfg plus an optional CSV file.
// Sinks opened before a failure are closed.
func buildSinks(ctx context.Context, cfg *config.Config, csvPath string) (*gsio.MultiSink, error) {
	var sinks []gsio.Sink
	fail := func(err error) (*gsio.MultiSink, error) {
		_ = gsio.NewMultiSink(sinks...).Close()
		return nil, err
	}

	if csvPath != "" {
		sinks = append(sinks, csv.NewFileSink(csvPath))
	}
	if cfg.Influx.Enabled {
		s, err := influx.NewSink(ctx, cfg.Influx)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Kafka.Enabled {
		p, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, p)
	}
	return gsio.NewMultiSink(sinks...), nil
}
