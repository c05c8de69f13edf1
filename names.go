package county

import (
	"fmt"
	"unicode"
)

// validName accepts letters, digits and underscores, not starting with a digit.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty column name")
	}

	for ind, r := range name {
		switch {
		case r == '_', unicode.IsLetter(r):
		case unicode.IsDigit(r) && ind > 0:
		default:
			return fmt.Errorf("invalid column name %q", name)
		}
	}

	return nil
}
