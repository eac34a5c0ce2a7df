package models

import "fmt"

// TestKey identifies one diagnostic axis of the categorization protocol
type TestKey int

const (
	TestDipole TestKey = iota
	TestDCToggle
	TestVoltage
	TestMagnetToggle
)

var testKeyNames = map[TestKey]string{
	TestDipole:       "dipole",
	TestDCToggle:     "dcToggle",
	TestVoltage:      "voltage",
	TestMagnetToggle: "magnetToggle",
}

func (k TestKey) String() string {
	if name, ok := testKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TestKey(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler
func (k TestKey) MarshalText() ([]byte, error) {
	name, ok := testKeyNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown test key %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *TestKey) UnmarshalText(text []byte) error {
	key, err := ParseTestKey(string(text))
	if err != nil {
		return err
	}
	*k = key
	return nil
}

// ParseTestKey converts a test key name into a TestKey
func ParseTestKey(s string) (TestKey, error) {
	for k, name := range testKeyNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown test key %q", s)
}

// TestDefinition is one diagnostic axis with its ordered test values
type TestDefinition struct {
	Key        TestKey   `json:"key" yaml:"key" doc:"Test axis: dipole, dcToggle, voltage or magnetToggle"`
	Label      string    `json:"label" yaml:"label" doc:"Human readable test name"`
	Categorize bool      `json:"categorize" yaml:"categorize" doc:"Whether the test contributes to the category label"`
	Values     []float64 `json:"values" yaml:"values" doc:"Ordered test values"`
}

// TestResult is one measurement recorded for a test value
type TestResult struct {
	Key              TestKey   `json:"key"`
	Value            float64   `json:"value"`
	Fit              FitResult `json:"fit"`
	ExtraAttenuation int       `json:"extra_attenuation"`
	PeakMagnitude    float64   `json:"peak_magnitude"`
}
