package hardware

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

func peakAbs(signal []float64) float64 {
	m := 0.0
	for _, v := range signal {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func TestSimulator_Execute(t *testing.T) {
	sim := NewSimulator(
		WithLines(Line{Frequency: 101, Strength: 0.5}),
		WithSampling(256, 25.6),
		WithNoise(0),
	)
	tmpl := models.ScanTemplate{Frequency: 100, Shots: 10}

	scan, err := sim.Execute(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, 1, scan.Number)
	assert.Len(t, scan.Signal, 256)
	assert.Equal(t, 25.6, scan.SampleRate)
	assert.InDelta(t, 0.5, peakAbs(scan.Signal), 1e-9)

	tmpl.Attenuation = 20
	scan, err = sim.Execute(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, 2, scan.Number)
	assert.Equal(t, 20, scan.Attenuation)
	assert.InDelta(t, 0.05, peakAbs(scan.Signal), 1e-9)
}

func TestSimulator_ClipsAtFullScale(t *testing.T) {
	sim := NewSimulator(WithLines(Line{Frequency: 101, Strength: 5}), WithNoise(0))

	scan, err := sim.Execute(context.Background(), models.ScanTemplate{Frequency: 100, Shots: 1})
	require.NoError(t, err)
	assert.Equal(t, FullScale, peakAbs(scan.Signal))
}

func TestSimulator_Response(t *testing.T) {
	line := Line{Frequency: 101, Strength: 0.4, MinDipole: 1, MagnetFactor: 0.5, DCFactor: 0.25}
	sim := NewSimulator(WithLines(line), WithSampling(256, 25.6), WithNoise(0))
	ctx := context.Background()

	tests := []struct {
		name string
		tmpl models.ScanTemplate
		want float64
	}{
		{"unpolarized below min dipole", models.ScanTemplate{Frequency: 100, Shots: 1, DipoleMoment: 0.5}, 0},
		{"dipole at threshold", models.ScanTemplate{Frequency: 100, Shots: 1, DipoleMoment: 1}, 0.4},
		{"magnet", models.ScanTemplate{Frequency: 100, Shots: 1, MagnetOn: true}, 0.2},
		{"dc", models.ScanTemplate{Frequency: 100, Shots: 1, DCEnabled: true}, 0.1},
		{"out of band", models.ScanTemplate{Frequency: 120, Shots: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scan, err := sim.Execute(ctx, tt.tmpl)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, peakAbs(scan.Signal), 1e-9)
		})
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	tmpl := models.ScanTemplate{Frequency: 100, Shots: 4}
	a, err := NewSimulator(WithSeed(7)).Execute(context.Background(), tmpl)
	require.NoError(t, err)
	b, err := NewSimulator(WithSeed(7)).Execute(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, a.Signal, b.Signal)
}

func TestSimulator_Errors(t *testing.T) {
	sim := NewSimulator()
	_, err := sim.Execute(context.Background(), models.ScanTemplate{Shots: 0})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Execute(ctx, models.ScanTemplate{Shots: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
