package categorize

import (
	"github.com/RMahshie/ftmwcat/pkg/models"
)

// AttenuationStep is the extra attenuation added after each saturated scan
const AttenuationStep = 10

// State is the progress record of the entry currently being categorized.
// The driver owns it by value; only the Engine mutates it.
type State struct {
	ScanIndex        int
	ScansTaken       int
	TestIndex        int
	ValueIndex       int
	Final            bool
	ExtraAttenuation int
	Frequencies      []float64
	Results          map[models.TestKey][]models.TestResult
	Selected         map[models.TestKey]models.TestResult
	Template         models.ScanTemplate
	Category         string
	Terminal         bool
	Calibration      bool

	// Records holds the scan log of this entry until it finalizes.
	Records []models.ScanResult
	// Trace is the cumulative spectral trace of this entry.
	Trace []models.PlotPoint

	baseAttenuation int
}

// ActiveTest reports the key and value of the test the working template is
// configured for. ok is false once the test phase is complete.
func (st *State) ActiveTest(tests []models.TestDefinition) (key models.TestKey, value float64, ok bool) {
	if st.Final || st.Calibration || st.TestIndex >= len(tests) {
		return 0, 0, false
	}
	t := tests[st.TestIndex]
	return t.Key, t.Values[st.ValueIndex], true
}

// Outcome summarizes a terminal state
func (st *State) Outcome() models.EntryOutcome {
	return models.EntryOutcome{
		EntryIndex:       st.ScanIndex,
		Frequency:        st.Template.Frequency,
		Calibration:      st.Calibration,
		Category:         st.Category,
		Scans:            st.ScansTaken,
		Frequencies:      append([]float64(nil), st.Frequencies...),
		ExtraAttenuation: st.ExtraAttenuation,
	}
}
