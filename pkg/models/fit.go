package models

import "fmt"

// Peak represents a single line found in a spectrum
type Peak struct {
	Frequency float64 `json:"frequency" doc:"Line frequency in MHz"`
	Amplitude float64 `json:"amplitude" doc:"Line amplitude in arbitrary units"`
}

// FitCategory is the coarse classification a fitter assigns to a scan
type FitCategory int

const (
	FitNormal FitCategory = iota
	FitSaturated
	FitNoFittingEngine
)

func (c FitCategory) String() string {
	switch c {
	case FitNormal:
		return "normal"
	case FitSaturated:
		return "saturated"
	case FitNoFittingEngine:
		return "no_fitting_engine"
	}
	return fmt.Sprintf("FitCategory(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler
func (c FitCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *FitCategory) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*c = FitNormal
	case "saturated":
		*c = FitSaturated
	case "no_fitting_engine":
		*c = FitNoFittingEngine
	default:
		return fmt.Errorf("unknown fit category %q", text)
	}
	return nil
}

// FitResult is the analysis of one completed scan
type FitResult struct {
	Peaks    []Peak      `json:"peaks"`
	Category FitCategory `json:"category"`
}

// Strongest returns the peak with the largest amplitude
func (f FitResult) Strongest() (Peak, bool) {
	if len(f.Peaks) == 0 {
		return Peak{}, false
	}
	best := f.Peaks[0]
	for _, p := range f.Peaks[1:] {
		if p.Amplitude > best.Amplitude {
			best = p
		}
	}
	return best, true
}

// Frequencies returns the frequencies of all peaks in order
func (f FitResult) Frequencies() []float64 {
	out := make([]float64, 0, len(f.Peaks))
	for _, p := range f.Peaks {
		out = append(out, p.Frequency)
	}
	return out
}
