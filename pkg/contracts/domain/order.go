// Package domain contains the core domain models for the lifecycle engine.
// These types serve as the single source of truth for all layers: records
// are persisted as their JSON encoding, so field tags double as the storage
// schema.
package domain

import (
	"encoding/json"
	"time"
)

// OrderStatus is the payment state of an order. There is no cancelled or
// refunded state: an order that is never paid simply ages out of the store.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
)

// DefaultActivationsMax is the device slot count a license carries unless
// the order says otherwise.
const DefaultActivationsMax = 2

// Order is one purchase attempt. DeliverToken, TokenExpiresAt and LicenseKey
// stay empty until the order is marked paid.
type Order struct {
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`

	ProductID   string `json:"productId"`
	Slug        string `json:"slug"`
	ProductName string `json:"productName"`

	Subtotal float64         `json:"subtotal"`
	Total    float64         `json:"total"`
	Coupon   json.RawMessage `json:"coupon,omitempty"`
	PayLink  string          `json:"payLink"`

	AndroidURL string `json:"android_url"`
	IOSLink    string `json:"ios_link"`
	WebLink    string `json:"web_link"`

	DeliverToken   string    `json:"deliverToken"`
	TokenExpiresAt time.Time `json:"expiresAt"`

	LicenseKey     string `json:"licenseKey"`
	ActivationsMax int    `json:"activationsMax"`
}

// IsPaid reports whether the order has gone through payment confirmation.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}
