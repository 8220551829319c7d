package config

import (
	"strconv"
	"strings"
)

// FormatFloat renders a parameter value for manifests and stage arguments.
// Whole numbers keep one decimal, so 1 is written as 1.0.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".eNI") {
		return s
	}
	return s + ".0"
}
