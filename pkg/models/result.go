package models

// ScanResult is one record of the append-only batch result log
type ScanResult struct {
	ScanNumber  int       `json:"scan_number" doc:"Executor sequence number"`
	EntryIndex  int       `json:"entry_index" doc:"Position of the entry in the worklist"`
	Attenuation int       `json:"attenuation" doc:"Attenuation used for the scan"`
	Calibration bool      `json:"calibration" doc:"Whether the scan belonged to a calibration entry"`
	TestKey     *TestKey  `json:"test_key,omitempty" doc:"Active test when the scan ran; absent once tests are exhausted"`
	TestValue   float64   `json:"test_value" doc:"Active test value when the scan ran"`
	Frequencies []float64 `json:"frequencies" doc:"Detected line frequencies at the time of the scan"`
	Label       string    `json:"label" doc:"Plot label emitted for the scan"`
}

// EntryOutcome is the final categorization of one worklist entry
type EntryOutcome struct {
	EntryIndex       int       `json:"entry_index" doc:"Position of the entry in the worklist"`
	Frequency        float64   `json:"frequency" doc:"Target frequency in MHz"`
	Calibration      bool      `json:"calibration" doc:"Whether the entry was a calibration scan"`
	Category         string    `json:"category" doc:"Category label, SAT or ND"`
	Scans            int       `json:"scans" doc:"Number of scans consumed by the entry"`
	Frequencies      []float64 `json:"frequencies" doc:"Detected line frequencies"`
	ExtraAttenuation int       `json:"extra_attenuation" doc:"Extra attenuation applied for saturation"`
}

// PlotPoint is one point of a calibration or spectral trace
type PlotPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlotPayload is emitted once per processed scan
type PlotPayload struct {
	Label       string      `json:"label"`
	Calibration bool        `json:"calibration"`
	Points      []PlotPoint `json:"points"`
}
