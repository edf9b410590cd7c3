package domain

import "time"

// License is the long-lived artifact handed to the customer. It outlives the
// order and every delivery token minted for it.
type License struct {
	LicenseKey string `json:"licenseKey"`
	OrderID    string `json:"orderId"`

	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`

	ActivationsMax int      `json:"activationsMax"`
	Devices        []string `json:"devices"` // insertion order = activation order
	Revoked        bool     `json:"revoked"` // one-way

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasDevice reports whether deviceID already occupies a slot.
func (l *License) HasDevice(deviceID string) bool {
	for _, d := range l.Devices {
		if d == deviceID {
			return true
		}
	}
	return false
}

// ActivationsLeft returns the number of unused device slots.
func (l *License) ActivationsLeft() int {
	left := l.ActivationsMax - len(l.Devices)
	if left < 0 {
		return 0
	}
	return left
}
