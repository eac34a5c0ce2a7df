package categorize

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// Category labels for terminal outcomes that are not composed from test results
const (
	CategorySaturated     = "SAT"
	CategoryNotDetected   = "ND"
	CategoryCalibration   = "CAL"
	CategoryUncategorized = "NC"
)

// SignalAnalyzer provides the raw-signal fallbacks used when no fitting
// engine is configured
type SignalAnalyzer interface {
	MaxIntensity(signal []float64) float64
	IsSaturated(signal []float64) bool
}

// Action tells the driver what the engine decided after a scan
type Action int

const (
	// ActionRescan repeats the scan with more attenuation
	ActionRescan Action = iota
	// ActionNext runs the working template, now configured for the next test value
	ActionNext
	// ActionFinal means the entry has a category and the driver should move on
	ActionFinal
)

func (a Action) String() string {
	switch a {
	case ActionRescan:
		return "rescan"
	case ActionNext:
		return "next"
	case ActionFinal:
		return "final"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Step is the result of advancing the state by one completed scan
type Step struct {
	Action Action
	Label  string
	Point  models.PlotPoint
	Record models.ScanResult
}

// Engine drives a State through the categorization protocol
type Engine struct {
	tests          []models.TestDefinition
	maxAttenuation int
	selector       Selector
	analyzer       SignalAnalyzer
}

// Option configures an Engine
type Option func(*Engine)

// WithSelector sets the best-result selection strategy. Default is LastValue.
func WithSelector(s Selector) Option {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

// WithSignalAnalyzer sets the raw-signal fallback used without a fitting engine
func WithSignalAnalyzer(a SignalAnalyzer) Option {
	return func(e *Engine) {
		e.analyzer = a
	}
}

// NewEngine creates an engine for a normalized, non-empty list of test definitions
func NewEngine(tests []models.TestDefinition, maxAttenuation int, opts ...Option) *Engine {
	e := &Engine{
		tests:          tests,
		maxAttenuation: maxAttenuation,
		selector:       LastValue{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tests returns the test definitions the engine iterates
func (e *Engine) Tests() []models.TestDefinition {
	return e.tests
}

// Begin creates the state for a worklist entry and configures its working
// template for the first applicable test
func (e *Engine) Begin(index int, entry models.Entry) State {
	st := State{
		ScanIndex:       index,
		Template:        entry.Template,
		Calibration:     entry.Calibration,
		Results:         make(map[models.TestKey][]models.TestResult),
		Selected:        make(map[models.TestKey]models.TestResult),
		baseAttenuation: entry.Template.Attenuation,
	}
	if !entry.Calibration {
		e.enterTest(&st)
	}
	return st
}

// Advance consumes the analysis of one completed scan and mutates st
func (e *Engine) Advance(st *State, scan models.CompletedScan, fit models.FitResult) Step {
	if st.Terminal {
		panic(fmt.Sprintf("categorize: advance on finalized entry %d", st.ScanIndex))
	}
	if !st.Calibration {
		e.checkCursor(st)
	}
	st.ScansTaken++

	head := fmt.Sprintf("%.3f/%d", st.Template.Frequency, st.Template.Attenuation)
	record := models.ScanResult{
		ScanNumber:  scan.Number,
		EntryIndex:  st.ScanIndex,
		Attenuation: st.Template.Attenuation,
		Calibration: st.Calibration,
	}
	if key, _, ok := st.ActiveTest(e.tests); ok {
		k := key
		record.TestKey = &k
		record.TestValue = e.currentValue(st)
	}

	logger := log.With().
		Int("entry", st.ScanIndex).
		Int("scan", scan.Number).
		Float64("frequency", st.Template.Frequency).
		Int("extraAttenuation", st.ExtraAttenuation).
		Logger()

	var step Step
	switch {
	case st.Calibration:
		amp := e.magnitude(scan, fit)
		step = Step{Action: ActionFinal, Label: head + "\n" + CategoryCalibration}
		step.Point = models.PlotPoint{X: float64(scan.Number), Y: amp}
		e.finalize(st, CategoryCalibration)
		logger.Debug().Float64("amplitude", amp).Msg("calibration scan recorded")
	case e.saturated(scan, fit):
		step = e.onSaturated(st, head)
		logger.Debug().Str("action", step.Action.String()).Msg("saturated scan")
	case st.Final:
		category := e.compose(st)
		e.finalize(st, category)
		step = Step{Action: ActionFinal, Label: "FINAL\n" + category}
	case len(st.Frequencies) == 0:
		step = e.detect(st, scan, fit, head)
		logger.Debug().Str("action", step.Action.String()).Floats64("frequencies", st.Frequencies).Msg("detection attempt")
	default:
		label := head + "\n" + e.fragment(st)
		e.record(st, scan, fit)
		step = e.next(st, label)
	}

	if !st.Calibration {
		step.Point = models.PlotPoint{X: float64(scan.Number), Y: e.magnitude(scan, fit)}
		st.Trace = append(st.Trace, step.Point)
	}
	record.Frequencies = append([]float64{}, st.Frequencies...)
	record.Label = step.Label
	step.Record = record
	st.Records = append(st.Records, record)

	if step.Action == ActionFinal {
		logger.Info().Str("category", st.Category).Int("scans", st.ScansTaken).Msg("entry categorized")
	}
	return step
}

func (e *Engine) saturated(scan models.CompletedScan, fit models.FitResult) bool {
	if fit.Category == models.FitSaturated {
		return true
	}
	return fit.Category == models.FitNoFittingEngine && e.analyzer != nil && e.analyzer.IsSaturated(scan.Signal)
}

func (e *Engine) onSaturated(st *State, head string) Step {
	if st.ExtraAttenuation+AttenuationStep >= e.maxAttenuation {
		e.finalize(st, CategorySaturated)
		return Step{Action: ActionFinal, Label: "FINAL\n" + CategorySaturated}
	}
	label := head + "\n" + CategorySaturated

	st.ExtraAttenuation += AttenuationStep
	atten := st.baseAttenuation + st.ExtraAttenuation
	if atten > e.maxAttenuation {
		atten = e.maxAttenuation
	}
	st.Template.Attenuation = atten
	st.Template.DipoleMoment = 0

	if key, _, ok := st.ActiveTest(e.tests); ok && key == models.TestDipole {
		// a saturated line is not swept through further dipole strengths
		e.nextTest(st)
		if st.Final {
			e.finalize(st, CategorySaturated)
			return Step{Action: ActionFinal, Label: "FINAL\n" + CategorySaturated}
		}
		return Step{Action: ActionNext, Label: label}
	}
	return Step{Action: ActionRescan, Label: label}
}

func (e *Engine) detect(st *State, scan models.CompletedScan, fit models.FitResult, head string) Step {
	freqs := fit.Frequencies()
	if len(freqs) == 0 && fit.Category == models.FitNoFittingEngine {
		freqs = []float64{st.Template.Frequency}
	}

	t := e.tests[st.TestIndex]
	if len(freqs) == 0 {
		if t.Key != models.TestDipole || st.ValueIndex >= len(t.Values)-1 {
			e.finalize(st, CategoryNotDetected)
			return Step{Action: ActionFinal, Label: "FINAL\n" + CategoryNotDetected}
		}
		label := head + "\n" + e.fragment(st)
		e.record(st, scan, fit)
		if !e.advanceCursor(st) {
			e.finalize(st, CategoryNotDetected)
			return Step{Action: ActionFinal, Label: "FINAL\n" + CategoryNotDetected}
		}
		return Step{Action: ActionNext, Label: label}
	}

	st.Frequencies = freqs
	label := head + "\n" + e.fragment(st)
	e.record(st, scan, fit)
	return e.next(st, label)
}

// next advances the cursor after a recorded result and finalizes when the
// test list is exhausted
func (e *Engine) next(st *State, label string) Step {
	if e.advanceCursor(st) {
		return Step{Action: ActionNext, Label: label}
	}
	category := e.compose(st)
	e.finalize(st, category)
	return Step{Action: ActionFinal, Label: "FINAL\n" + category}
}

func (e *Engine) record(st *State, scan models.CompletedScan, fit models.FitResult) {
	t := e.tests[st.TestIndex]
	st.Results[t.Key] = append(st.Results[t.Key], models.TestResult{
		Key:              t.Key,
		Value:            e.currentValue(st),
		Fit:              fit,
		ExtraAttenuation: st.ExtraAttenuation,
		PeakMagnitude:    e.magnitude(scan, fit),
	})
}

// advanceCursor moves to the next test value and configures the working
// template for it. It returns false once the test list is exhausted.
func (e *Engine) advanceCursor(st *State) bool {
	if st.Final {
		return false
	}
	e.checkCursor(st)
	t := e.tests[st.TestIndex]

	switch {
	case st.ValueIndex >= len(t.Values)-1, t.Key == models.TestDipole && st.ExtraAttenuation > 0:
		e.nextTest(st)
	default:
		st.ValueIndex++
		e.apply(st, t.Key, t.Values[st.ValueIndex])
	}
	return !st.Final
}

// nextTest closes the active test and enters the following one with the
// magnet off and no dipole excitation carried over
func (e *Engine) nextTest(st *State) {
	e.finishTest(st)
	st.Template.MagnetOn = false
	st.Template.DipoleMoment = 0
	st.TestIndex++
	st.ValueIndex = 0
	e.enterTest(st)
}

// enterTest configures the template for the test at TestIndex, skipping
// tests the template cannot run
func (e *Engine) enterTest(st *State) {
	for st.TestIndex < len(e.tests) {
		t := e.tests[st.TestIndex]
		if t.Key == models.TestVoltage && !st.Template.Pulse.DCAvailable {
			st.TestIndex++
			continue
		}
		e.apply(st, t.Key, t.Values[st.ValueIndex])
		return
	}
	st.Final = true
}

func (e *Engine) apply(st *State, key models.TestKey, value float64) {
	switch key {
	case models.TestDipole:
		st.Template.DipoleMoment = value
	case models.TestVoltage:
		st.Template.DCEnabled = true
		st.Template.DCVoltage = int(value)
	case models.TestDCToggle:
		st.Template.DCEnabled = !st.Template.DCEnabled
	case models.TestMagnetToggle:
		st.Template.MagnetOn = !st.Template.MagnetOn
	default:
		panic(fmt.Sprintf("categorize: unknown test key %v", key))
	}
}

func (e *Engine) finishTest(st *State) {
	key := e.tests[st.TestIndex].Key
	if best, ok := e.selector.Select(st.Results[key]); ok {
		st.Selected[key] = best
	}
}

func (e *Engine) finalize(st *State, category string) {
	st.Category = category
	st.Final = true
	st.Terminal = true
}

// currentValue is the test value the template is configured for. Toggle
// tests report the resulting flag state as 1 or 0.
func (e *Engine) currentValue(st *State) float64 {
	t := e.tests[st.TestIndex]
	switch t.Key {
	case models.TestDCToggle:
		return boolValue(st.Template.DCEnabled)
	case models.TestMagnetToggle:
		return boolValue(st.Template.MagnetOn)
	}
	return t.Values[st.ValueIndex]
}

func (e *Engine) fragment(st *State) string {
	return fragment(e.tests[st.TestIndex].Key, e.currentValue(st))
}

// magnitude is the strongest peak amplitude, or the raw signal maximum when
// the fitter reported no peaks
func (e *Engine) magnitude(scan models.CompletedScan, fit models.FitResult) float64 {
	if p, ok := fit.Strongest(); ok {
		return p.Amplitude
	}
	if e.analyzer != nil {
		return e.analyzer.MaxIntensity(scan.Signal)
	}
	return 0
}

func (e *Engine) checkCursor(st *State) {
	if st.TestIndex < 0 || st.TestIndex > len(e.tests) {
		panic(fmt.Sprintf("categorize: test index %d out of range [0,%d]", st.TestIndex, len(e.tests)))
	}
	if st.TestIndex == len(e.tests) {
		if !st.Final {
			panic("categorize: test list exhausted without final state")
		}
		return
	}
	if n := len(e.tests[st.TestIndex].Values); st.ValueIndex < 0 || st.ValueIndex >= n {
		panic(fmt.Sprintf("categorize: value index %d out of range [0,%d)", st.ValueIndex, n))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
