package hardware

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadLines reads simulated transitions from a YAML list
func LoadLines(path string) ([]Line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lines file: %w", err)
	}

	var lines []Line
	if err := yaml.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to parse lines file %s: %w", path, err)
	}
	for i, l := range lines {
		if l.Frequency <= 0 || l.Strength < 0 {
			return nil, fmt.Errorf("line %d: frequency must be positive and strength non-negative", i)
		}
	}
	return lines, nil
}
