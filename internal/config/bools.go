package config

import "strings"

// ParseBool interprets yes/true/t/y/1 and no/false/f/n/0, case-insensitively.
// Anything else is an InvalidParameterError naming field.
func ParseBool(field, v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "t", "y", "1":
		return true, nil
	case "no", "false", "f", "n", "0":
		return false, nil
	}
	return false, &InvalidParameterError{Field: field, Value: v, Reason: "boolean value expected"}
}
