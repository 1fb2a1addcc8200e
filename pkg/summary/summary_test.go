package summary

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func scored() *grid.Table {
	t := grid.FromReadings([]grid.Reading{
		{FeederID: "F1", State: "Bihar", Date: day(1), UnitsInjected: 1000, UnitsBilled: 700, LossPercentage: 30},
		{FeederID: "F2", State: "Bihar", Date: day(3), UnitsInjected: 1000, UnitsBilled: 900, LossPercentage: 10},
		{FeederID: "F3", State: "Gujarat", Date: day(2), UnitsInjected: 2000, UnitsBilled: 1800, LossPercentage: 10},
		{FeederID: "F1", State: "Gujarat", Date: day(2), UnitsInjected: 500, UnitsBilled: 250, LossPercentage: 50},
	})
	_ = t.SetBool(grid.ColIsSuspicious, []bool{true, false, true, false})
	_ = t.SetFloat(grid.ColFailureRiskScore, []float64{0.9, 0.1, 0.5, 0.75})
	_ = t.SetText(grid.ColRiskLabel, []string{"HIGH", "LOW", "MEDIUM", "HIGH"})
	return t
}

func TestCompute(t *testing.T) {
	s, err := Compute(scored())
	require.NoError(t, err)

	assert.Equal(t, 4, s.Readings)
	assert.Equal(t, 3, s.Feeders)
	assert.InDelta(t, 25.0, s.AvgLoss, 1e-9)
	assert.Equal(t, 2, s.Suspicious)
	assert.Equal(t, map[grid.RiskLabel]int{grid.RiskHigh: 2, grid.RiskMedium: 1, grid.RiskLow: 1}, s.RiskCounts)

	require.Len(t, s.States, 2)
	assert.Equal(t, StateStat{State: "Gujarat", Readings: 2, MeanLoss: 30, Suspicious: 1, HighRisk: 1}, s.States[0])
	assert.Equal(t, StateStat{State: "Bihar", Readings: 2, MeanLoss: 20, Suspicious: 1, HighRisk: 1}, s.States[1])
	assert.Equal(t, "Gujarat", s.WorstState)
	assert.Equal(t, "Bihar", s.BestState)

	require.Len(t, s.SuspiciousRows, 2)
	assert.Equal(t, "F1", s.SuspiciousRows[0].FeederID)
	assert.Equal(t, "F3", s.SuspiciousRows[1].FeederID)

	require.Len(t, s.HighRiskRows, 2)
	assert.Equal(t, 0.9, s.HighRiskRows[0].FailureRiskScore)
	assert.Equal(t, "Gujarat", s.HighRiskRows[1].State)
	assert.Equal(t, "2024-01-02", s.HighRiskRows[1].Date)

	assert.Equal(t, []DayStat{
		{Date: "2024-01-01", Readings: 1, MeanLoss: 30},
		{Date: "2024-01-02", Readings: 2, MeanLoss: 30},
		{Date: "2024-01-03", Readings: 1, MeanLoss: 10},
	}, s.DailyLoss)

	assert.InDelta(t, 850.0, s.UnbilledKWh, 1e-9)
	assert.Equal(t, 3, s.DaySpan)
	assert.Equal(t, DefaultTariff, s.TariffPerKWh)
	assert.InDelta(t, 850*6.5*365/3/1e7, s.AnnualLossCrore, 1e-12)
}

func TestComputeOptions(t *testing.T) {
	s, err := Compute(scored(), WithTariff(13), WithLimit(1))
	require.NoError(t, err)

	assert.Len(t, s.SuspiciousRows, 1)
	assert.Len(t, s.HighRiskRows, 1)
	assert.Equal(t, 2, s.Suspicious)
	assert.InDelta(t, 850*13*365/3/1e7, s.AnnualLossCrore, 1e-12)
}

func TestComputeUnscored(t *testing.T) {
	in := grid.FromReadings([]grid.Reading{
		{FeederID: "F1", State: "Bihar", UnitsInjected: 100, UnitsBilled: 90, LossPercentage: 10},
	})
	s, err := Compute(in)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Suspicious)
	assert.Empty(t, s.HighRiskRows)
	assert.Equal(t, 1, s.DaySpan)
	assert.Empty(t, s.DailyLoss)
	assert.Equal(t, "Bihar", s.WorstState)
	assert.Equal(t, "Bihar", s.BestState)
}

func TestComputeErrors(t *testing.T) {
	_, err := Compute(grid.NewTable(0))
	assert.True(t, errors.Is(err, grid.ErrInsufficientData))

	_, err = Compute(scored().Drop(grid.ColUnitsBilled))
	assert.True(t, errors.Is(err, grid.ErrSchema))

	_, err = Compute(scored().Drop(grid.ColState))
	assert.True(t, errors.Is(err, grid.ErrSchema))
}
