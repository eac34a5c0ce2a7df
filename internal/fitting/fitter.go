package fitting

import (
	"context"
	"errors"
	"fmt"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// ErrSignalTooShort is returned when a scan does not carry enough samples to transform
var ErrSignalTooShort = errors.New("signal too short to analyze")

// Fitter analyzes one completed scan
type Fitter interface {
	Fit(ctx context.Context, scan models.CompletedScan) (models.FitResult, error)
}

// Mode names accepted by New
const (
	ModeFT   = "ft"
	ModeNone = "none"
)

// New returns the fitter for a configured mode
func New(mode string, threshold float64, analyzer *SignalAnalyzer) (Fitter, error) {
	switch mode {
	case ModeFT, "":
		return NewFTFitter(threshold, analyzer), nil
	case ModeNone:
		return NoFitter{}, nil
	}
	return nil, fmt.Errorf("unknown fit mode %q", mode)
}

// NoFitter stands in when no fitting engine is available. Callers fall back
// to the raw signal through a SignalAnalyzer.
type NoFitter struct{}

// Fit implements Fitter
func (NoFitter) Fit(ctx context.Context, scan models.CompletedScan) (models.FitResult, error) {
	return models.FitResult{Category: models.FitNoFittingEngine}, nil
}
