package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProblemID is returned when an operator-supplied id is not all digits.
var ErrInvalidProblemID = errors.New("problem id must be digits only")

// ParseProblemID trims raw and checks it is a non-empty run of ASCII digits.
func ParseProblemID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidProblemID)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidProblemID, raw)
		}
	}
	return id, nil
}
