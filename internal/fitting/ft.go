package fitting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// FTFitter finds lines as local maxima of the FT magnitude spectrum
type FTFitter struct {
	threshold float64
	analyzer  *SignalAnalyzer
}

// NewFTFitter creates a peak-picking fitter. Peaks below threshold are ignored.
func NewFTFitter(threshold float64, analyzer *SignalAnalyzer) *FTFitter {
	if analyzer == nil {
		analyzer = NewSignalAnalyzer(0)
	}
	return &FTFitter{threshold: threshold, analyzer: analyzer}
}

// Fit implements Fitter
func (f *FTFitter) Fit(ctx context.Context, scan models.CompletedScan) (models.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return models.FitResult{}, err
	}
	if len(scan.Signal) < 4 {
		return models.FitResult{}, fmt.Errorf("scan %d: %w", scan.Number, ErrSignalTooShort)
	}
	if f.analyzer.IsSaturated(scan.Signal) {
		return models.FitResult{Category: models.FitSaturated}, nil
	}

	mags := Spectrum(scan.Signal)
	n := len(scan.Signal)
	var peaks []models.Peak
	for i := 1; i < len(mags)-1; i++ {
		if mags[i] < f.threshold || mags[i] <= mags[i-1] || mags[i] < mags[i+1] {
			continue
		}
		offset := float64(i) * scan.SampleRate / float64(n)
		peaks = append(peaks, models.Peak{
			Frequency: scan.Frequency + offset,
			Amplitude: mags[i],
		})
	}

	log.Debug().Int("scan", scan.Number).Int("peaks", len(peaks)).Msg("spectrum fitted")
	return models.FitResult{Peaks: peaks, Category: models.FitNormal}, nil
}
