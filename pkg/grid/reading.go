package grid

import (
	"time"
)

// Input columns.
const (
	ColFeederID            = "feeder_id"
	ColState               = "state"
	ColDate                = "date"
	ColUnitsInjected       = "units_injected_kwh"
	ColUnitsBilled         = "units_billed_kwh"
	ColLossPercentage      = "loss_percentage"
	ColTransformerAge      = "transformer_age_years"
	ColTemperature         = "temperature_celsius"
	ColLoadFactor          = "load_factor"
	ColSmartMeterInstalled = "smart_meter_installed"
	ColVoltageFluctuation  = "voltage_fluctuation"
	ColOutageHours         = "outage_hours_monthly"
)

// Derived columns appended by the pipeline.
const (
	ColAnomalyScore     = "anomaly_score"
	ColIsSuspicious     = "is_suspicious"
	ColHighRiskLabel    = "high_risk_label"
	ColFailureRiskScore = "failure_risk_score"
	ColRiskLabel        = "risk_label"
)

// DateLayout is the on-table encoding of the reading day.
const DateLayout = "2006-01-02"

// NumericColumns lists input columns stored as floats.
var NumericColumns = []string{
	ColUnitsInjected,
	ColUnitsBilled,
	ColLossPercentage,
	ColTransformerAge,
	ColTemperature,
	ColLoadFactor,
	ColVoltageFluctuation,
	ColOutageHours,
}

// BoolColumns lists input and derived columns stored as booleans.
var BoolColumns = []string{
	ColSmartMeterInstalled,
	ColIsSuspicious,
	ColHighRiskLabel,
}

// Reading is one feeder-day row. The derived fields are zero until the
// pipeline has run.
type Reading struct {
	FeederID            string    `json:"feeder_id"`
	State               string    `json:"state"`
	Date                time.Time `json:"date"`
	UnitsInjected       float64   `json:"units_injected_kwh"`
	UnitsBilled         float64   `json:"units_billed_kwh"`
	LossPercentage      float64   `json:"loss_percentage"`
	TransformerAge      float64   `json:"transformer_age_years"`
	Temperature         float64   `json:"temperature_celsius"`
	LoadFactor          float64   `json:"load_factor"`
	SmartMeterInstalled bool      `json:"smart_meter_installed"`
	VoltageFluctuation  float64   `json:"voltage_fluctuation"`
	OutageHoursMonthly  float64   `json:"outage_hours_monthly"`

	AnomalyScore     float64   `json:"anomaly_score"`
	IsSuspicious     bool      `json:"is_suspicious"`
	HighRiskLabel    bool      `json:"high_risk_label"`
	FailureRiskScore float64   `json:"failure_risk_score"`
	RiskLabel        RiskLabel `json:"risk_label,omitempty"`
}

// FromReadings builds a table holding the input columns of rs.
func FromReadings(rs []Reading) *Table {
	n := len(rs)
	t := NewTable(n)

	ids := make([]string, n)
	states := make([]string, n)
	dates := make([]string, n)
	meters := make([]bool, n)
	floats := make(map[string][]float64, len(NumericColumns))
	for _, c := range NumericColumns {
		floats[c] = make([]float64, n)
	}

	for i, r := range rs {
		ids[i] = r.FeederID
		states[i] = r.State
		if !r.Date.IsZero() {
			dates[i] = r.Date.Format(DateLayout)
		}
		meters[i] = r.SmartMeterInstalled
		floats[ColUnitsInjected][i] = r.UnitsInjected
		floats[ColUnitsBilled][i] = r.UnitsBilled
		floats[ColLossPercentage][i] = r.LossPercentage
		floats[ColTransformerAge][i] = r.TransformerAge
		floats[ColTemperature][i] = r.Temperature
		floats[ColLoadFactor][i] = r.LoadFactor
		floats[ColVoltageFluctuation][i] = r.VoltageFluctuation
		floats[ColOutageHours][i] = r.OutageHoursMonthly
	}

	// lengths always match n, so the setters cannot fail here
	_ = t.SetText(ColFeederID, ids)
	_ = t.SetText(ColState, states)
	_ = t.SetText(ColDate, dates)
	for _, c := range NumericColumns {
		_ = t.SetFloat(c, floats[c])
	}
	_ = t.SetBool(ColSmartMeterInstalled, meters)
	return t
}

// Readings converts the table back into rows. Absent columns leave their
// fields zero.
func (t *Table) Readings() []Reading {
	out := make([]Reading, t.rows)
	text := func(c string, set func(*Reading, string)) {
		if v, ok := t.text[c]; ok {
			for i := range out {
				set(&out[i], v[i])
			}
		}
	}
	num := func(c string, set func(*Reading, float64)) {
		if v, ok := t.numeric[c]; ok {
			for i := range out {
				set(&out[i], v[i])
			}
		}
	}
	flag := func(c string, set func(*Reading, bool)) {
		if v, ok := t.flags[c]; ok {
			for i := range out {
				set(&out[i], v[i])
			}
		}
	}

	text(ColFeederID, func(r *Reading, v string) { r.FeederID = v })
	text(ColState, func(r *Reading, v string) { r.State = v })
	text(ColDate, func(r *Reading, v string) { r.Date = ParseDate(v) })
	text(ColRiskLabel, func(r *Reading, v string) { r.RiskLabel = RiskLabel(v) })
	num(ColUnitsInjected, func(r *Reading, v float64) { r.UnitsInjected = v })
	num(ColUnitsBilled, func(r *Reading, v float64) { r.UnitsBilled = v })
	num(ColLossPercentage, func(r *Reading, v float64) { r.LossPercentage = v })
	num(ColTransformerAge, func(r *Reading, v float64) { r.TransformerAge = v })
	num(ColTemperature, func(r *Reading, v float64) { r.Temperature = v })
	num(ColLoadFactor, func(r *Reading, v float64) { r.LoadFactor = v })
	num(ColVoltageFluctuation, func(r *Reading, v float64) { r.VoltageFluctuation = v })
	num(ColOutageHours, func(r *Reading, v float64) { r.OutageHoursMonthly = v })
	num(ColAnomalyScore, func(r *Reading, v float64) { r.AnomalyScore = v })
	num(ColFailureRiskScore, func(r *Reading, v float64) { r.FailureRiskScore = v })
	flag(ColSmartMeterInstalled, func(r *Reading, v bool) { r.SmartMeterInstalled = v })
	flag(ColIsSuspicious, func(r *Reading, v bool) { r.IsSuspicious = v })
	flag(ColHighRiskLabel, func(r *Reading, v bool) { r.HighRiskLabel = v })

	return out
}

// ParseDate accepts a bare day, a "2006-01-02 15:04:05" timestamp or an
// RFC 3339 time. Unparseable values yield the zero time.
func ParseDate(s string) time.Time {
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if d, err := time.Parse(layout, s); err == nil {
			return d
		}
	}
	return time.Time{}
}
