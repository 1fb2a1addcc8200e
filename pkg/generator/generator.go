// Package generator produces synthetic feeder-day readings for demos and
// tests.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

// States are the regions feeders are assigned to.
var States = []string{
	"Maharashtra", "Uttar Pradesh", "Rajasthan",
	"Gujarat", "Bihar", "Tamil Nadu", "West Bengal",
	"Madhya Pradesh",
}

// Generator draws readings from fixed uniform ranges.
type Generator struct {
	feeders int
	days    int
	start   time.Time
	seed    int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithFeeders sets the number of feeders.
func WithFeeders(n int) Option {
	return func(g *Generator) {
		g.feeders = n
	}
}

// WithDays sets the number of days per feeder.
func WithDays(n int) Option {
	return func(g *Generator) {
		g.days = n
	}
}

// WithStart sets the first reading day.
func WithStart(t time.Time) Option {
	return func(g *Generator) {
		g.start = t
	}
}

// WithSeed sets the random seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// New creates a Generator for 100 feeders over 30 days from 2024-01-01.
func New(opts ...Option) *Generator {
	g := &Generator{
		feeders: 100,
		days:    30,
		start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		seed:    42,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Readings returns feeders*days readings, feeder-major.
func (g *Generator) Readings() []grid.Reading {
	rng := rand.New(rand.NewSource(g.seed))
	out := make([]grid.Reading, 0, g.feeders*g.days)

	for i := 0; i < g.feeders; i++ {
		for day := 0; day < g.days; day++ {
			injected := uniform(rng, 500, 5000)
			loss := uniform(rng, 5, 35)
			billed := injected * (1 - loss/100)

			out = append(out, grid.Reading{
				FeederID:            fmt.Sprintf("FEEDER_%03d", i),
				State:               States[rng.Intn(len(States))],
				Date:                g.start.AddDate(0, 0, day),
				UnitsInjected:       round(injected, 2),
				UnitsBilled:         round(billed, 2),
				LossPercentage:      round(loss, 2),
				TransformerAge:      float64(1 + rng.Intn(30)),
				Temperature:         round(uniform(rng, 15, 45), 1),
				LoadFactor:          round(uniform(rng, 0.4, 0.95), 2),
				SmartMeterInstalled: rng.Intn(2) == 1,
				VoltageFluctuation:  round(uniform(rng, 0.5, 10.0), 2),
				OutageHoursMonthly:  round(uniform(rng, 0, 20), 1),
			})
		}
	}
	return out
}

// Table returns the generated readings as a table.
func (g *Generator) Table() *grid.Table {
	return grid.FromReadings(g.Readings())
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
