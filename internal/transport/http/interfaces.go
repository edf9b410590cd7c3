package http

import (
	"context"

	"valeshop/internal/licenses"
	"valeshop/internal/lifecycle"
	"valeshop/internal/orders"
	"valeshop/pkg/contracts/domain"
)

// OrderService is the slice of the order repository the handlers consume.
type OrderService interface {
	Create(ctx context.Context, fields orders.CreateFields) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Order, string, bool, error)
}

// LifecycleService drives the paid transition and token regeneration.
type LifecycleService interface {
	MarkPaidAndTokenize(ctx context.Context, order *domain.Order) (*lifecycle.PaidResult, error)
	RegenerateToken(ctx context.Context, order *domain.Order) (*lifecycle.PaidResult, error)
}

// LicenseService covers activation, validation and the admin operations.
type LicenseService interface {
	Activate(ctx context.Context, licenseKey, deviceID string) (*licenses.ActivationResult, error)
	Validate(ctx context.Context, licenseKey, deviceID string) (*licenses.ValidationResult, error)
	Revoke(ctx context.Context, licenseKey string) (*domain.License, error)
	List(ctx context.Context, limit int, cursor string) ([]licenses.Summary, string, bool, error)
}

// TokenService redeems delivery tokens.
type TokenService interface {
	Redeem(ctx context.Context, token string) (*domain.DeliveryToken, error)
}
