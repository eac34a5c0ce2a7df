package hardware

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// FullScale is the digitizer clip level of simulated signals
const FullScale = 1.0

// Line is a simulated molecular transition
type Line struct {
	Frequency float64 `json:"frequency" yaml:"frequency"`
	// Strength is the FID amplitude at zero attenuation
	Strength float64 `json:"strength" yaml:"strength"`
	// MinDipole is the smallest dipole setting that still polarizes the line
	MinDipole float64 `json:"min_dipole" yaml:"min_dipole"`
	// MagnetFactor scales the amplitude while the magnet is on (0 means unaffected)
	MagnetFactor float64 `json:"magnet_factor" yaml:"magnet_factor"`
	// DCFactor scales the amplitude while DC-Stark is enabled (0 means unaffected)
	DCFactor float64 `json:"dc_factor" yaml:"dc_factor"`
	// Decay is the FID decay time in µs; 0 disables decay
	Decay float64 `json:"decay" yaml:"decay"`
}

// Simulator is a deterministic stand-in for the spectrometer
type Simulator struct {
	mu         sync.Mutex
	lines      []Line
	samples    int
	sampleRate float64
	noise      float64
	seed       uint64
	number     int
}

// SimulatorOption configures a Simulator
type SimulatorOption func(*Simulator)

// WithLines sets the simulated transitions
func WithLines(lines ...Line) SimulatorOption {
	return func(s *Simulator) {
		s.lines = append(s.lines, lines...)
	}
}

// WithSampling sets record length and sample rate (MHz)
func WithSampling(samples int, sampleRate float64) SimulatorOption {
	return func(s *Simulator) {
		if samples > 0 {
			s.samples = samples
		}
		if sampleRate > 0 {
			s.sampleRate = sampleRate
		}
	}
}

// WithNoise sets the single-shot noise level
func WithNoise(level float64) SimulatorOption {
	return func(s *Simulator) {
		s.noise = level
	}
}

// WithSeed sets the noise seed
func WithSeed(seed uint64) SimulatorOption {
	return func(s *Simulator) {
		s.seed = seed
	}
}

// NewSimulator creates a simulator. Defaults: 1024 samples at 25.6 MHz, noise 0.05.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		samples:    1024,
		sampleRate: 25.6,
		noise:      0.05,
		seed:       1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute implements ScanExecutor
func (s *Simulator) Execute(ctx context.Context, tmpl models.ScanTemplate) (models.CompletedScan, error) {
	if err := ctx.Err(); err != nil {
		return models.CompletedScan{}, err
	}
	if tmpl.Shots <= 0 {
		return models.CompletedScan{}, fmt.Errorf("invalid shot count %d", tmpl.Shots)
	}

	s.mu.Lock()
	s.number++
	number := s.number
	s.mu.Unlock()

	rng := rand.New(rand.NewPCG(s.seed, uint64(number)))
	sigma := s.noise / math.Sqrt(float64(tmpl.Shots))
	gain := math.Pow(10, -float64(tmpl.Attenuation)/20)

	signal := make([]float64, s.samples)
	for _, line := range s.lines {
		offset := line.Frequency - tmpl.Frequency
		if offset <= 0 || offset >= s.sampleRate/2 {
			continue
		}
		amp := line.Strength * gain * s.response(line, tmpl)
		if amp == 0 {
			continue
		}
		for i := range signal {
			t := float64(i) / s.sampleRate
			v := amp * math.Cos(2*math.Pi*offset*t)
			if line.Decay > 0 {
				v *= math.Exp(-t / line.Decay)
			}
			signal[i] += v
		}
	}
	for i := range signal {
		signal[i] += rng.NormFloat64() * sigma
		signal[i] = math.Max(-FullScale, math.Min(FullScale, signal[i]))
	}

	log.Debug().
		Int("scan", number).
		Float64("frequency", tmpl.Frequency).
		Int("attenuation", tmpl.Attenuation).
		Msg("simulated scan")

	return models.CompletedScan{
		Number:      number,
		Tuning:      tmpl.Frequency,
		Signal:      signal,
		SampleRate:  s.sampleRate,
		Attenuation: tmpl.Attenuation,
		Frequency:   tmpl.Frequency,
	}, nil
}

func (s *Simulator) response(line Line, tmpl models.ScanTemplate) float64 {
	r := 1.0
	if tmpl.DipoleMoment > 0 && tmpl.DipoleMoment < line.MinDipole {
		return 0
	}
	if tmpl.MagnetOn && line.MagnetFactor > 0 {
		r *= line.MagnetFactor
	}
	if tmpl.DCEnabled && line.DCFactor > 0 {
		r *= line.DCFactor
	}
	return r
}
