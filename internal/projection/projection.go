// Package projection turns replica snapshots into render-ready views.
//
// Every function here is pure: inputs are record slices, view parameters
// and an explicit now. Nothing reads the clock, touches a store or keeps
// state between calls, so re-projecting after a filter change is free.
package projection

import (
	"math"
	"strings"
)

// ShowAll is the filter value that disables a status/category filter. An
// empty filter means the same.
const ShowAll = "all"

// matchesSearch reports whether any field contains term, ignoring case.
// An empty term matches everything.
func matchesSearch(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func showAll(filter string) bool {
	return filter == "" || filter == ShowAll
}

// ConversionRate is closed/total as a whole percent, rounded half away from
// zero. It is 0 when total is 0.
func ConversionRate(closed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(closed) * 100 / float64(total)))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Action is a row button and whether it is enabled.
type Action struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}
