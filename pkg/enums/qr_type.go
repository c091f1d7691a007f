package enums

import "fmt"

// QRType distinguishes pickup from return handover tokens.
type QRType string

const (
	QRTypePickup QRType = "pickup"
	QRTypeReturn QRType = "return"
)

var validQRTypes = []QRType{
	QRTypePickup,
	QRTypeReturn,
}

// String implements fmt.Stringer.
func (q QRType) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QRType.
func (q QRType) IsValid() bool {
	for _, candidate := range validQRTypes {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQRType converts raw input into a QRType.
func ParseQRType(value string) (QRType, error) {
	for _, candidate := range validQRTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid qr type %q", value)
}
