package models

// PulseConfig describes the capabilities of the pulse sequence behind a template
type PulseConfig struct {
	DCAvailable bool `json:"dc_available" yaml:"dc_available" doc:"Whether the pulse configuration supports DC-Stark operation"`
}

// ScanTemplate describes one measurement to perform
type ScanTemplate struct {
	Attenuation  int         `json:"attenuation" yaml:"attenuation" minimum:"0" doc:"Excitation attenuation in dB"`
	DipoleMoment float64     `json:"dipole_moment" yaml:"dipole_moment" minimum:"0" doc:"Assumed dipole moment in Debye"`
	MagnetOn     bool        `json:"magnet_on" yaml:"magnet_on" doc:"Whether the magnet is energized"`
	DCEnabled    bool        `json:"dc_enabled" yaml:"dc_enabled" doc:"Whether DC-Stark electrodes are enabled"`
	DCVoltage    int         `json:"dc_voltage" yaml:"dc_voltage" doc:"DC-Stark voltage in V"`
	Frequency    float64     `json:"frequency" yaml:"frequency" doc:"Target frequency in MHz"`
	Shots        int         `json:"shots" yaml:"shots" minimum:"1" doc:"Number of shots to average"`
	Pulse        PulseConfig `json:"pulse" yaml:"pulse" doc:"Pulse configuration capabilities"`
}

// Entry is one item of a batch worklist
type Entry struct {
	Template    ScanTemplate `json:"template" yaml:"template" doc:"Scan configuration for this entry"`
	Calibration bool         `json:"calibration" yaml:"calibration" doc:"Whether this is a calibration scan"`
}

// CompletedScan is what the scan executor returns for one template
type CompletedScan struct {
	Number      int       `json:"number"`
	Tuning      float64   `json:"tuning"`
	Signal      []float64 `json:"signal"`
	SampleRate  float64   `json:"sample_rate"`
	Attenuation int       `json:"attenuation"`
	Frequency   float64   `json:"frequency"`
}
