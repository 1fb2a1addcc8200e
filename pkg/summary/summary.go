// Package summary aggregates a scored batch into headline figures.
package summary

import (
	"cmp"
	"slices"
	"time"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

// DefaultTariff is the average tariff in rupees per kWh.
const DefaultTariff = 6.5

const (
	rupeesPerCrore = 1e7
	daysPerYear    = 365
)

// StateStat aggregates the readings of one state.
type StateStat struct {
	State      string  `json:"state"`
	Readings   int     `json:"readings"`
	MeanLoss   float64 `json:"mean_loss_percentage"`
	Suspicious int     `json:"suspicious"`
	HighRisk   int     `json:"high_risk"`
}

// DayStat is the mean loss over the readings of one date.
type DayStat struct {
	Date     string  `json:"date"`
	Readings int     `json:"readings"`
	MeanLoss float64 `json:"mean_loss_percentage"`
}

// Row identifies a flagged reading.
type Row struct {
	FeederID         string         `json:"feeder_id"`
	State            string         `json:"state"`
	Date             string         `json:"date,omitempty"`
	LossPercentage   float64        `json:"loss_percentage"`
	AnomalyScore     float64        `json:"anomaly_score"`
	FailureRiskScore float64        `json:"failure_risk_score"`
	RiskLabel        grid.RiskLabel `json:"risk_label,omitempty"`
}

// Summary holds the aggregates of a scored batch.
type Summary struct {
	Readings   int                    `json:"readings"`
	Feeders    int                    `json:"feeders"`
	AvgLoss    float64                `json:"avg_loss_percentage"`
	Suspicious int                    `json:"suspicious"`
	RiskCounts map[grid.RiskLabel]int `json:"risk_counts"`

	// States is ordered by mean loss, worst first.
	States     []StateStat `json:"states"`
	WorstState string      `json:"worst_state"`
	BestState  string      `json:"best_state"`

	// DailyLoss is ordered by date. Readings without a date are left out.
	DailyLoss []DayStat `json:"daily_loss"`

	// SuspiciousRows is ordered by loss, highest first.
	SuspiciousRows []Row `json:"suspicious_rows"`
	// HighRiskRows is ordered by failure risk score, highest first.
	HighRiskRows []Row `json:"high_risk_rows"`

	UnbilledKWh     float64 `json:"unbilled_kwh"`
	DaySpan         int     `json:"day_span"`
	TariffPerKWh    float64 `json:"tariff_per_kwh"`
	AnnualLossCrore float64 `json:"annual_revenue_loss_crore"`
}

type options struct {
	tariff float64
	limit  int
}

// Option configures Compute.
type Option func(*options)

// WithTariff sets the rupees-per-kWh rate used for revenue loss.
func WithTariff(rupees float64) Option {
	return func(o *options) {
		o.tariff = rupees
	}
}

// WithLimit caps the flagged row lists. Zero keeps every row.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// Compute aggregates t. The derived columns are optional; when absent their
// counts are zero.
func Compute(t *grid.Table, opts ...Option) (*Summary, error) {
	o := options{tariff: DefaultTariff}
	for _, opt := range opts {
		opt(&o)
	}

	if t.Len() == 0 {
		return nil, &grid.InsufficientDataError{Component: "summary", Reason: "empty batch"}
	}
	if _, err := t.Matrix([]string{grid.ColLossPercentage, grid.ColUnitsInjected, grid.ColUnitsBilled}); err != nil {
		return nil, err
	}
	if _, ok := t.Text(grid.ColState); !ok {
		return nil, &grid.SchemaError{Missing: []string{grid.ColState}}
	}

	s := &Summary{
		Readings:     t.Len(),
		TariffPerKWh: o.tariff,
		RiskCounts: map[grid.RiskLabel]int{
			grid.RiskHigh:   0,
			grid.RiskMedium: 0,
			grid.RiskLow:    0,
		},
	}

	feeders := make(map[string]struct{})
	states := make(map[string]*StateStat)
	days := make(map[string]*DayStat)
	var lossSum float64
	var first, last time.Time

	for _, r := range t.Readings() {
		feeders[r.FeederID] = struct{}{}
		lossSum += r.LossPercentage
		s.UnbilledKWh += r.UnitsInjected - r.UnitsBilled

		st, ok := states[r.State]
		if !ok {
			st = &StateStat{State: r.State}
			states[r.State] = st
		}
		st.Readings++
		st.MeanLoss += r.LossPercentage

		if r.RiskLabel.Valid() {
			s.RiskCounts[r.RiskLabel]++
		}
		if r.IsSuspicious {
			s.Suspicious++
			st.Suspicious++
			s.SuspiciousRows = append(s.SuspiciousRows, rowOf(r))
		}
		if r.RiskLabel == grid.RiskHigh {
			st.HighRisk++
			s.HighRiskRows = append(s.HighRiskRows, rowOf(r))
		}

		if !r.Date.IsZero() {
			if first.IsZero() || r.Date.Before(first) {
				first = r.Date
			}
			if last.IsZero() || r.Date.After(last) {
				last = r.Date
			}

			key := r.Date.Format(grid.DateLayout)
			d, ok := days[key]
			if !ok {
				d = &DayStat{Date: key}
				days[key] = d
			}
			d.Readings++
			d.MeanLoss += r.LossPercentage
		}
	}

	s.Feeders = len(feeders)
	s.AvgLoss = lossSum / float64(s.Readings)

	for _, st := range states {
		st.MeanLoss /= float64(st.Readings)
		s.States = append(s.States, *st)
	}
	slices.SortFunc(s.States, func(a, b StateStat) int {
		if c := cmp.Compare(b.MeanLoss, a.MeanLoss); c != 0 {
			return c
		}
		return cmp.Compare(a.State, b.State)
	})
	s.WorstState = s.States[0].State
	s.BestState = s.States[len(s.States)-1].State

	s.DailyLoss = make([]DayStat, 0, len(days))
	for _, d := range days {
		d.MeanLoss /= float64(d.Readings)
		s.DailyLoss = append(s.DailyLoss, *d)
	}
	slices.SortFunc(s.DailyLoss, func(a, b DayStat) int {
		return cmp.Compare(a.Date, b.Date)
	})

	slices.SortStableFunc(s.SuspiciousRows, func(a, b Row) int {
		return cmp.Compare(b.LossPercentage, a.LossPercentage)
	})
	slices.SortStableFunc(s.HighRiskRows, func(a, b Row) int {
		return cmp.Compare(b.FailureRiskScore, a.FailureRiskScore)
	})
	s.SuspiciousRows = limit(s.SuspiciousRows, o.limit)
	s.HighRiskRows = limit(s.HighRiskRows, o.limit)

	s.DaySpan = 1
	if !first.IsZero() {
		s.DaySpan = int(last.Sub(first).Hours()/24) + 1
	}
	s.AnnualLossCrore = s.UnbilledKWh * o.tariff * daysPerYear / float64(s.DaySpan) / rupeesPerCrore

	return s, nil
}

func rowOf(r grid.Reading) Row {
	row := Row{
		FeederID:         r.FeederID,
		State:            r.State,
		LossPercentage:   r.LossPercentage,
		AnomalyScore:     r.AnomalyScore,
		FailureRiskScore: r.FailureRiskScore,
		RiskLabel:        r.RiskLabel,
	}
	if !r.Date.IsZero() {
		row.Date = r.Date.Format(grid.DateLayout)
	}
	return row
}

func limit(rows []Row, n int) []Row {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
