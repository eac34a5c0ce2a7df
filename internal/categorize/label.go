package categorize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// compose builds the category label from the selected results of every
// test flagged for categorization, in test order
func (e *Engine) compose(st *State) string {
	var parts []string
	seen := make(map[models.TestKey]bool)
	for _, t := range e.tests {
		if !t.Categorize || seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		r, ok := st.Selected[t.Key]
		if !ok {
			continue
		}
		parts = append(parts, fragment(t.Key, r.Value))
	}
	if len(parts) == 0 {
		return CategoryUncategorized
	}
	return strings.Join(parts, ";")
}

func fragment(key models.TestKey, value float64) string {
	switch key {
	case models.TestDipole:
		return "u:" + formatValue(value)
	case models.TestVoltage:
		return fmt.Sprintf("V:%d", int(value))
	case models.TestDCToggle:
		return "dc:" + onOff(value)
	case models.TestMagnetToggle:
		return "B:" + onOff(value)
	}
	panic(fmt.Sprintf("categorize: unknown test key %v", key))
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func onOff(v float64) string {
	if v != 0 {
		return "on"
	}
	return "off"
}
