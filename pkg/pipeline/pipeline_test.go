package pipeline

import (
	"errors"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyak-umathe/L-THackthon/pkg/generator"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

func batch(feeders, days int) *grid.Table {
	return generator.New(generator.WithFeeders(feeders), generator.WithDays(days), generator.WithSeed(7)).Table()
}

func TestRunAppendsDerivedColumns(t *testing.T) {
	in := batch(20, 10)
	out, rep, err := New(DefaultConfig()).Run(in)
	require.NoError(t, err)

	for _, c := range []string{
		grid.ColAnomalyScore, grid.ColIsSuspicious, grid.ColHighRiskLabel,
		grid.ColFailureRiskScore, grid.ColRiskLabel,
	} {
		assert.True(t, out.Has(c), c)
		assert.False(t, in.Has(c), "input must not be modified: %s", c)
	}
	assert.Equal(t, in.Len(), out.Len())
	assert.Equal(t, 200, rep.Rows)
	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.Degraded())
}

func TestRunIsDeterministic(t *testing.T) {
	in := batch(25, 8)
	p := New(DefaultConfig())

	a, _, err := p.Run(in)
	require.NoError(t, err)
	b, _, err := p.Run(in)
	require.NoError(t, err)

	for _, c := range []string{grid.ColAnomalyScore, grid.ColFailureRiskScore} {
		va, _ := a.Float(c)
		vb, _ := b.Float(c)
		assert.Equal(t, va, vb, c)
	}
	sa, _ := a.Bool(grid.ColIsSuspicious)
	sb, _ := b.Bool(grid.ColIsSuspicious)
	assert.Equal(t, sa, sb)
	la, _ := a.Text(grid.ColRiskLabel)
	lb, _ := b.Text(grid.ColRiskLabel)
	assert.Equal(t, la, lb)

	ja, err := a.MarshalJSON()
	require.NoError(t, err)
	jb, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestRunConcurrent(t *testing.T) {
	const workers = 8
	p := New(DefaultConfig())

	inputs := make([]*grid.Table, workers)
	want := make([]*grid.Table, workers)
	for i := range inputs {
		inputs[i] = generator.New(generator.WithFeeders(15), generator.WithDays(6), generator.WithSeed(int64(i+1))).Table()
		out, _, err := p.Run(inputs[i])
		require.NoError(t, err)
		want[i] = out
	}

	got := make([]*grid.Table, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _, errs[i] = p.Run(inputs[i])
		}(i)
	}
	wg.Wait()

	for i := range inputs {
		require.NoError(t, errs[i])
		for _, c := range []string{grid.ColAnomalyScore, grid.ColFailureRiskScore} {
			vw, _ := want[i].Float(c)
			vg, _ := got[i].Float(c)
			assert.Equal(t, vw, vg, "worker %d column %s", i, c)
		}
		lw, _ := want[i].Text(grid.ColRiskLabel)
		lg, _ := got[i].Text(grid.ColRiskLabel)
		assert.Equal(t, lw, lg, "worker %d", i)
	}
}

func TestSingleClassRiskScoresLow(t *testing.T) {
	rs := make([]grid.Reading, 20)
	for i := range rs {
		rs[i] = grid.Reading{
			FeederID: "FEEDER_001", UnitsInjected: 1000 + float64(i), UnitsBilled: 700,
			LossPercentage: 26 + float64(i)/10, TransformerAge: 25, Temperature: 30,
			LoadFactor: 0.7, VoltageFluctuation: 2, OutageHoursMonthly: 4,
		}
	}

	out, rep, err := New(DefaultConfig()).Run(grid.FromReadings(rs))
	require.NoError(t, err)

	assert.True(t, rep.Risk.Degraded)
	assert.ErrorIs(t, rep.Risk.Err(), grid.ErrInsufficientData)
	weak, _ := out.Bool(grid.ColHighRiskLabel)
	require.Len(t, weak, 20)
	for _, w := range weak {
		assert.True(t, w)
	}
	risk, _ := out.Float(grid.ColFailureRiskScore)
	labels, _ := out.Text(grid.ColRiskLabel)
	for i := range risk {
		assert.Equal(t, 0.0, risk[i])
		assert.Equal(t, "LOW", labels[i])
	}
}

func TestSyntheticHundredRowScenario(t *testing.T) {
	in := batch(100, 1)
	out, rep, err := New(DefaultConfig()).Run(in)
	require.NoError(t, err)

	assert.InDelta(t, 12, rep.Suspicious, 3)

	suspicious, _ := out.Bool(grid.ColIsSuspicious)
	count := 0
	for _, s := range suspicious {
		if s {
			count++
		}
	}
	assert.Equal(t, rep.Suspicious, count)

	age, _ := out.Float(grid.ColTransformerAge)
	loss, _ := out.Float(grid.ColLossPercentage)
	score, _ := out.Float(grid.ColFailureRiskScore)

	var risky, young []float64
	for i := range score {
		switch {
		case age[i] > 20 && loss[i] > 20:
			risky = append(risky, score[i])
		case age[i] < 10:
			young = append(young, score[i])
		}
	}
	require.NotEmpty(t, risky)
	require.NotEmpty(t, young)
	assert.Greater(t, median(risky), median(young)+0.3)
}

func TestLabelPartition(t *testing.T) {
	out, rep, err := New(DefaultConfig()).Run(batch(30, 10))
	require.NoError(t, err)

	score, _ := out.Float(grid.ColFailureRiskScore)
	labels, _ := out.Text(grid.ColRiskLabel)
	for i, s := range score {
		l := grid.RiskLabel(labels[i])
		require.True(t, l.Valid())
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.Equal(t, l == grid.RiskHigh, s > 0.70)
		assert.Equal(t, l == grid.RiskLow, s <= 0.40)
	}

	total := 0
	for _, c := range rep.RiskCounts {
		total += c
	}
	assert.Equal(t, out.Len(), total)
}

func TestAnomalyScoreSign(t *testing.T) {
	out, _, err := NewAnomalyScorer(DefaultConfig()).ScoreAnomalies(batch(10, 20))
	require.NoError(t, err)

	scores, _ := out.Float(grid.ColAnomalyScore)
	flags, _ := out.Bool(grid.ColIsSuspicious)
	for i := range scores {
		assert.Equal(t, scores[i] < 0, flags[i])
	}
}

func TestWeakLabels(t *testing.T) {
	rs := []grid.Reading{
		{TransformerAge: 21, LossPercentage: 20.5},
		{TransformerAge: 20, LossPercentage: 30},
		{TransformerAge: 25, LossPercentage: 20},
		{TransformerAge: 30, LossPercentage: 34.9},
		{TransformerAge: 5, LossPercentage: 5},
	}
	labels, err := WeakLabels(grid.FromReadings(rs))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, true, false}, labels)
}

func TestSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		table   func() *grid.Table
		missing []string
	}{
		{
			name:    "missing voltage fluctuation",
			table:   func() *grid.Table { return batch(5, 5).Drop(grid.ColVoltageFluctuation) },
			missing: []string{grid.ColVoltageFluctuation},
		},
		{
			name:    "missing outage hours",
			table:   func() *grid.Table { return batch(5, 5).Drop(grid.ColOutageHours) },
			missing: []string{grid.ColOutageHours},
		},
		{
			name: "non-finite value",
			table: func() *grid.Table {
				tb := batch(5, 5)
				v, _ := tb.Float(grid.ColTemperature)
				v[3] = math.NaN()
				return tb
			},
		},
		{
			name: "text feature column",
			table: func() *grid.Table {
				tb := batch(2, 2).Drop(grid.ColLoadFactor)
				require.NoError(t, tb.SetText(grid.ColLoadFactor, []string{"a", "b", "c", "d"}))
				return tb
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.table()
			out, _, err := New(DefaultConfig()).Run(in)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, grid.ErrSchema))

			var se *grid.SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.missing, se.Missing)
			assert.False(t, in.Has(grid.ColAnomalyScore))
		})
	}
}

func TestRiskSchemaCheckedBeforeAnomalyFit(t *testing.T) {
	in := batch(5, 5).Drop(grid.ColTransformerAge)
	_, _, err := NewRiskClassifier(DefaultConfig()).ScoreRisk(in)
	assert.ErrorIs(t, err, grid.ErrSchema)

	_, _, err = NewAnomalyScorer(DefaultConfig()).ScoreAnomalies(in)
	assert.NoError(t, err)
}

func TestEmptyBatch(t *testing.T) {
	_, _, err := New(DefaultConfig()).Run(grid.FromReadings(nil))
	assert.ErrorIs(t, err, grid.ErrInsufficientData)
}

func TestIdenticalRows(t *testing.T) {
	r := grid.Reading{
		FeederID: "FEEDER_001", UnitsInjected: 1000, UnitsBilled: 800,
		LossPercentage: 20, TransformerAge: 12, Temperature: 30,
		LoadFactor: 0.7, VoltageFluctuation: 2, OutageHoursMonthly: 4,
	}
	in := grid.FromReadings([]grid.Reading{r, r, r})

	out, rep, err := New(DefaultConfig()).Run(in)
	require.NoError(t, err)

	scores, _ := out.Float(grid.ColAnomalyScore)
	require.Len(t, scores, 3)
	for _, s := range scores {
		assert.False(t, math.IsNaN(s))
		assert.Equal(t, 0.0, s)
	}
	flags, _ := out.Bool(grid.ColIsSuspicious)
	assert.Equal(t, []bool{false, false, false}, flags)

	assert.False(t, rep.Anomaly.Degraded)
	assert.True(t, rep.Risk.Degraded)
	assert.ErrorIs(t, rep.Risk.Err(), grid.ErrInsufficientData)

	risk, _ := out.Float(grid.ColFailureRiskScore)
	assert.Equal(t, []float64{0, 0, 0}, risk)
	labels, _ := out.Text(grid.ColRiskLabel)
	assert.Equal(t, []string{"LOW", "LOW", "LOW"}, labels)
}

func TestSingleRowDegradesAnomaly(t *testing.T) {
	in := batch(1, 1)
	out, rep, err := New(DefaultConfig()).Run(in)
	require.NoError(t, err)

	assert.True(t, rep.Anomaly.Degraded)
	assert.ErrorIs(t, rep.Anomaly.Err(), grid.ErrInsufficientData)
	flags, _ := out.Bool(grid.ColIsSuspicious)
	assert.Equal(t, []bool{false}, flags)
	assert.True(t, rep.Risk.Degraded)
}

func TestOmitWeakLabel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeWeakLabel = false
	out, _, err := New(cfg).Run(batch(10, 5))
	require.NoError(t, err)
	assert.False(t, out.Has(grid.ColHighRiskLabel))
	assert.True(t, out.Has(grid.ColRiskLabel))
}

func TestHoldoutAccuracy(t *testing.T) {
	proba := []float64{0.9, 0.1, 0.6, 0.2}
	weak := []bool{true, false, false, true}
	assert.Equal(t, 0.5, holdoutAccuracy(proba, weak, []int{0, 1, 2, 3}))
	assert.Equal(t, 1.0, holdoutAccuracy(proba, weak, []int{0, 1}))
	assert.Equal(t, 0.0, holdoutAccuracy(proba, weak, nil))
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 0 {
		return (s[m-1] + s[m]) / 2
	}
	return s[m]
}
