package enums

import "fmt"

// CancelledBy records which party cancelled a rental.
type CancelledBy string

const (
	CancelledByRenter CancelledBy = "renter"
	CancelledByLessor CancelledBy = "lessor"
	CancelledBySystem CancelledBy = "system"
)

var validCancelledBy = []CancelledBy{
	CancelledByRenter,
	CancelledByLessor,
	CancelledBySystem,
}

// String implements fmt.Stringer.
func (c CancelledBy) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancelledBy.
func (c CancelledBy) IsValid() bool {
	for _, candidate := range validCancelledBy {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCancelledBy converts raw input into a CancelledBy.
func ParseCancelledBy(value string) (CancelledBy, error) {
	for _, candidate := range validCancelledBy {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancelled_by %q", value)
}
