package csv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyak-umathe/L-THackthon/pkg/generator"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

const sampleCSV = `feeder_id,state,date,units_injected_kwh,units_billed_kwh,loss_percentage,transformer_age_years,temperature_celsius,load_factor,smart_meter_installed,voltage_fluctuation,outage_hours_monthly
FEEDER_000,Bihar,2024-01-01,1000.5,750.25,25.01,22,31.5,0.61,True,3.2,7.5
FEEDER_001,Gujarat,2024-01-02,2000,1800,10,4,22,0.8,False,1.1,0.5
`

func TestRead(t *testing.T) {
	tb, err := NewReader(strings.NewReader(sampleCSV)).Read()
	require.NoError(t, err)

	assert.Equal(t, 2, tb.Len())
	assert.Equal(t, grid.KindFloat, tb.Kind(grid.ColLossPercentage))
	assert.Equal(t, grid.KindBool, tb.Kind(grid.ColSmartMeterInstalled))
	assert.Equal(t, grid.KindText, tb.Kind(grid.ColState))

	rs := tb.Readings()
	assert.Equal(t, "FEEDER_000", rs[0].FeederID)
	assert.Equal(t, 1000.5, rs[0].UnitsInjected)
	assert.True(t, rs[0].SmartMeterInstalled)
	assert.False(t, rs[1].SmartMeterInstalled)
	assert.Equal(t, 2024, rs[1].Date.Year())
	assert.Equal(t, 2, rs[1].Date.Day())
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSchema bool
	}{
		{"empty input", "", false},
		{"ragged row", "a,b\n1,2,3\n", false},
		{"bad number", "loss_percentage\nabc\n", true},
		{"bad bool", "smart_meter_installed\nmaybe\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input)).Read()
			require.Error(t, err)
			assert.Equal(t, tt.wantSchema, errors.Is(err, grid.ErrSchema))
		})
	}
}

func TestReadExtraColumns(t *testing.T) {
	in := "feeder_id,score\nF1,0.5\n"

	tb, err := NewReader(strings.NewReader(in)).Read()
	require.NoError(t, err)
	assert.Equal(t, grid.KindText, tb.Kind("score"))

	tb, err = NewReader(strings.NewReader(in), WithNumeric("score")).Read()
	require.NoError(t, err)
	assert.Equal(t, grid.KindFloat, tb.Kind("score"))
}

func TestWriteReadRoundTrip(t *testing.T) {
	in := generator.New(generator.WithFeeders(3), generator.WithDays(4)).Table()
	require.NoError(t, in.SetText(grid.ColRiskLabel, []string{
		"LOW", "LOW", "HIGH", "MEDIUM", "LOW", "LOW", "LOW", "LOW", "HIGH", "LOW", "LOW", "LOW",
	}))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	out, err := NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Equal(t, in.Columns(), out.Columns())
	assert.Equal(t, in.Readings(), out.Readings())
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scored.csv")
	in := generator.New(generator.WithFeeders(2), generator.WithDays(2)).Table()

	s := NewFileSink(path)
	assert.Equal(t, "csv:"+path, s.Name())
	require.NoError(t, s.Write(context.Background(), in))
	require.NoError(t, s.Close())

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in.Len(), out.Len())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Write(ctx, in))
}
