package categorize

import (
	"fmt"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// Selector picks the result that represents a finished test in the
// category label
type Selector interface {
	Select(results []models.TestResult) (models.TestResult, bool)
}

// LastValue keeps the most recently measured value of a test, which is the
// state the working template was left in
type LastValue struct{}

// Select implements Selector
func (LastValue) Select(results []models.TestResult) (models.TestResult, bool) {
	if len(results) == 0 {
		return models.TestResult{}, false
	}
	return results[len(results)-1], true
}

// StrongestAmplitude keeps the result with the largest peak magnitude.
// Ties go to the earlier measurement.
type StrongestAmplitude struct{}

// Select implements Selector
func (StrongestAmplitude) Select(results []models.TestResult) (models.TestResult, bool) {
	if len(results) == 0 {
		return models.TestResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.PeakMagnitude > best.PeakMagnitude {
			best = r
		}
	}
	return best, true
}

// SelectorByName resolves a configured policy name
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "last":
		return LastValue{}, nil
	case "strongest":
		return StrongestAmplitude{}, nil
	}
	return nil, fmt.Errorf("unknown best result policy %q", name)
}
