package tracks

import (
	"strconv"
	"strings"
)

// enabledSpellings are the normalized string forms that count as enabled.
// Values can come back from CSV as 1, 1.0, True, true, TRUE depending on the
// tool that last wrote the table.
var enabledSpellings = map[string]struct{}{
	"1":    {},
	"1.0":  {},
	"true": {},
}

// IsEnabled reports whether a persisted enabled cell means true.
func IsEnabled(raw string) bool {
	_, ok := enabledSpellings[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// EnabledValue applies IsEnabled to a typed value by formatting it the way
// it would appear in the table. Floats use their shortest exact form, so
// only 1 itself counts.
func EnabledValue(v any) bool {
	switch t := v.(type) {
	case string:
		return IsEnabled(t)
	case bool:
		return t
	case float64:
		return IsEnabled(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return IsEnabled(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return IsEnabled(strconv.Itoa(t))
	case int64:
		return IsEnabled(strconv.FormatInt(t, 10))
	default:
		return false
	}
}

func encodeEnabled(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}
