package batch

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/internal/categorize"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

var (
	ErrEmptyBatch         = errors.New("batch has no entries")
	ErrInvalidAttenuation = errors.New("maximum attenuation must be positive")
	ErrBatchComplete      = errors.New("batch already complete")
)

// PlotFunc receives the plot payload of every processed scan, in scan order
type PlotFunc func(models.PlotPayload)

// Driver walks a worklist entry by entry, feeding completed scans into the
// categorization engine. It is not safe for concurrent use.
type Driver struct {
	entries []models.Entry
	tests   []models.TestDefinition
	engine  *categorize.Engine
	plot    PlotFunc

	index      int
	state      categorize.State
	shotsTaken int

	results  []models.ScanResult
	starts   []int // offset into results of each finalized entry's records
	outcomes []models.EntryOutcome
	calTrace []models.PlotPoint
}

// Option configures a Driver
type Option func(*options)

type options struct {
	plot   PlotFunc
	engine []categorize.Option
}

// WithPlotter sets the callback that receives per-scan plot payloads
func WithPlotter(fn PlotFunc) Option {
	return func(o *options) {
		o.plot = fn
	}
}

// WithEngineOptions passes options through to the categorization engine
func WithEngineOptions(opts ...categorize.Option) Option {
	return func(o *options) {
		o.engine = append(o.engine, opts...)
	}
}

// New creates a driver for a worklist. Test definitions without values are
// dropped.
func New(entries []models.Entry, tests []models.TestDefinition, maxAttenuation int, opts ...Option) (*Driver, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	if maxAttenuation <= 0 {
		return nil, ErrInvalidAttenuation
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	normalized := make([]models.TestDefinition, 0, len(tests))
	for _, t := range tests {
		if len(t.Values) == 0 {
			log.Debug().Str("test", t.Key.String()).Msg("dropping test definition without values")
			continue
		}
		t.Values = append([]float64(nil), t.Values...)
		normalized = append(normalized, t)
	}

	d := &Driver{
		entries: append([]models.Entry(nil), entries...),
		tests:   normalized,
		engine:  categorize.NewEngine(normalized, maxAttenuation, o.engine...),
		plot:    o.plot,
	}
	d.state = d.engine.Begin(0, d.entries[0])
	return d, nil
}

// TotalShotEstimate returns the expected number of shots for the batch.
// It is approximate: saturation retries add shots, while non-detection and
// skipped tests remove them.
func (d *Driver) TotalShotEstimate() int {
	values := 0
	for _, t := range d.tests {
		values += len(t.Values)
	}

	total := 0
	for _, e := range d.entries {
		if e.Calibration {
			total += e.Template.Shots
		} else {
			total += e.Template.Shots * values
		}
	}
	return total
}

// NextScan returns the template to execute next and whether it is a
// calibration scan
func (d *Driver) NextScan() (models.ScanTemplate, bool) {
	if d.IsComplete() {
		panic("batch: NextScan called on a complete batch")
	}
	if d.state.ScansTaken == 0 {
		d.state = d.engine.Begin(d.index, d.entries[d.index])
	}
	return d.state.Template, d.state.Calibration
}

// IsComplete reports whether every entry has been categorized
func (d *Driver) IsComplete() bool {
	return d.index >= len(d.entries)
}

// OnScanCompleted feeds a completed scan and its analysis to the engine
func (d *Driver) OnScanCompleted(scan models.CompletedScan, fit models.FitResult) (categorize.Step, error) {
	if d.IsComplete() {
		return categorize.Step{}, ErrBatchComplete
	}
	d.shotsTaken += d.state.Template.Shots

	step := d.engine.Advance(&d.state, scan, fit)

	payload := models.PlotPayload{Label: step.Label, Calibration: d.state.Calibration}
	if d.state.Calibration {
		d.calTrace = append(d.calTrace, step.Point)
		payload.Points = append([]models.PlotPoint(nil), d.calTrace...)
	} else {
		payload.Points = append([]models.PlotPoint(nil), d.state.Trace...)
	}
	if d.plot != nil {
		d.plot(payload)
	}

	if step.Action == categorize.ActionFinal {
		d.starts = append(d.starts, len(d.results))
		d.results = append(d.results, d.state.Records...)
		d.outcomes = append(d.outcomes, d.state.Outcome())
		log.Info().
			Int("entry", d.index).
			Str("category", d.state.Category).
			Int("remaining", len(d.entries)-d.index-1).
			Msg("advancing to next entry")

		d.index++
		if d.IsComplete() {
			d.state = categorize.State{}
		} else {
			d.state = d.engine.Begin(d.index, d.entries[d.index])
		}
	}
	return step, nil
}

// Current returns a copy of the active entry's state
func (d *Driver) Current() categorize.State {
	return d.state
}

// Index returns the position of the active entry
func (d *Driver) Index() int {
	return d.index
}

// Len returns the number of worklist entries
func (d *Driver) Len() int {
	return len(d.entries)
}

// ShotsTaken returns the number of shots consumed so far
func (d *Driver) ShotsTaken() int {
	return d.shotsTaken
}

// Progress estimates completion as a percentage
func (d *Driver) Progress() int {
	if d.IsComplete() {
		return 100
	}
	total := d.TotalShotEstimate()
	if total <= 0 {
		return 0
	}
	p := d.shotsTaken * 100 / total
	if p > 99 {
		p = 99
	}
	return p
}

// Results returns the scan log of every finalized entry
func (d *Driver) Results() []models.ScanResult {
	return append([]models.ScanResult(nil), d.results...)
}

// EntryResults returns the scan log of one finalized entry, or nil when the
// entry has not been finalized
func (d *Driver) EntryResults(entry int) []models.ScanResult {
	if entry < 0 || entry >= len(d.starts) {
		return nil
	}
	end := len(d.results)
	if entry+1 < len(d.starts) {
		end = d.starts[entry+1]
	}
	return append([]models.ScanResult(nil), d.results[d.starts[entry]:end]...)
}

// Outcomes returns the categorization of every finalized entry
func (d *Driver) Outcomes() []models.EntryOutcome {
	return append([]models.EntryOutcome(nil), d.outcomes...)
}
