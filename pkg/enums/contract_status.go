package enums

import "fmt"

// ContractStatus tracks whether a rental contract can currently be booked.
type ContractStatus string

const (
	ContractStatusAvailable   ContractStatus = "available"
	ContractStatusUnavailable ContractStatus = "unavailable"
)

var validContractStatuses = []ContractStatus{
	ContractStatusAvailable,
	ContractStatusUnavailable,
}

// String implements fmt.Stringer.
func (c ContractStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContractStatus.
func (c ContractStatus) IsValid() bool {
	for _, candidate := range validContractStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContractStatus converts raw input into a ContractStatus.
func ParseContractStatus(value string) (ContractStatus, error) {
	for _, candidate := range validContractStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract status %q", value)
}
