package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RMahshie/ftmwcat/internal/hardware"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

// BatchFile is the YAML description of an offline batch run
type BatchFile struct {
	Name           string                  `yaml:"name"`
	MaxAttenuation int                     `yaml:"max_attenuation"`
	Entries        []models.Entry          `yaml:"entries"`
	Tests          []models.TestDefinition `yaml:"tests"`
	// Lines are the transitions the simulator responds to
	Lines []hardware.Line `yaml:"lines"`
}

// LoadBatchFile reads and validates a batch file
func LoadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var bf BatchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	if len(bf.Entries) == 0 {
		return nil, fmt.Errorf("batch file %s has no entries", path)
	}
	for i, e := range bf.Entries {
		if e.Template.Shots <= 0 {
			return nil, fmt.Errorf("entry %d: shots must be positive", i)
		}
	}
	return &bf, nil
}
