package domain

import "time"

// DeliveryToken is the ephemeral credential a paid order hands to the
// delivery page. It carries denormalized copies of everything the delivery
// payload needs, because the store cannot join back to the order.
type DeliveryToken struct {
	Token     string    `json:"token"`
	Used      bool      `json:"used"` // informational only; does not gate access
	ExpiresAt time.Time `json:"expiresAt"`

	OrderID     string `json:"orderId"`
	ProductID   string `json:"productId"`
	Slug        string `json:"slug"`
	ProductName string `json:"productName"`

	LicenseKey     string `json:"licenseKey"`
	ActivationsMax int    `json:"activationsMax"`

	AndroidURL string `json:"android_url"`
	IOSLink    string `json:"ios_link"`
	WebLink    string `json:"web_link"`
}

// Expired reports whether the token's own expiry stamp has passed. The store
// TTL is a second, longer fence behind this.
func (t *DeliveryToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
