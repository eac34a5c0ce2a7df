package fitting

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

func tone(n, bin int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Cos(2*math.Pi*float64(bin)*float64(i)/float64(n))
	}
	return out
}

func TestFTFitter_FindsBinAlignedLine(t *testing.T) {
	fitter := NewFTFitter(0.1, nil)
	scan := models.CompletedScan{Number: 1, Signal: tone(256, 10, 0.5), SampleRate: 25.6, Frequency: 100}

	fit, err := fitter.Fit(context.Background(), scan)
	require.NoError(t, err)

	assert.Equal(t, models.FitNormal, fit.Category)
	require.Len(t, fit.Peaks, 1)
	assert.InDelta(t, 101.0, fit.Peaks[0].Frequency, 1e-9)
	assert.InDelta(t, 0.5, fit.Peaks[0].Amplitude, 1e-9)
}

func TestFTFitter_BelowThreshold(t *testing.T) {
	fitter := NewFTFitter(0.1, nil)
	scan := models.CompletedScan{Number: 1, Signal: tone(128, 5, 0.01), SampleRate: 10, Frequency: 100}

	fit, err := fitter.Fit(context.Background(), scan)
	require.NoError(t, err)
	assert.Empty(t, fit.Peaks)
}

func TestFTFitter_Saturated(t *testing.T) {
	fitter := NewFTFitter(0.1, NewSignalAnalyzer(0.9))
	scan := models.CompletedScan{Number: 1, Signal: tone(128, 5, 1.0), SampleRate: 10}

	fit, err := fitter.Fit(context.Background(), scan)
	require.NoError(t, err)
	assert.Equal(t, models.FitSaturated, fit.Category)
}

func TestFTFitter_Errors(t *testing.T) {
	fitter := NewFTFitter(0.1, nil)

	_, err := fitter.Fit(context.Background(), models.CompletedScan{Number: 3, Signal: []float64{0.1}})
	assert.ErrorIs(t, err, ErrSignalTooShort)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fitter.Fit(ctx, models.CompletedScan{Signal: tone(64, 2, 0.3)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignalAnalyzer(t *testing.T) {
	a := NewSignalAnalyzer(0)
	assert.Equal(t, DefaultClipLevel, a.ClipLevel)

	assert.InDelta(t, 0.4, a.MaxIntensity(tone(64, 4, 0.4)), 1e-9)
	assert.Equal(t, 0.0, a.MaxIntensity(nil))

	assert.False(t, a.IsSaturated(tone(64, 4, 0.4)))
	assert.True(t, a.IsSaturated([]float64{0.1, -0.99, 0.2}))
	assert.False(t, a.IsSaturated(nil))
}

func TestNew(t *testing.T) {
	f, err := New(ModeNone, 0, nil)
	require.NoError(t, err)
	fit, err := f.Fit(context.Background(), models.CompletedScan{})
	require.NoError(t, err)
	assert.Equal(t, models.FitNoFittingEngine, fit.Category)

	f, err = New(ModeFT, 0.2, nil)
	require.NoError(t, err)
	assert.IsType(t, &FTFitter{}, f)

	_, err = New("lorentzian", 0, nil)
	assert.Error(t, err)
}
