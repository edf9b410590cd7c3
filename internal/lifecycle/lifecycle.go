// Package lifecycle implements the order state machine: created -> paid,
// token minting and regeneration. The multi-store write sequence is not
// atomic; every transition here is idempotent and re-entrant so re-invoking
// it is the recovery path after a partial failure.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"valeshop/internal/infrastructure"
	"valeshop/pkg/contracts/domain"
)

// ErrOrderNotPaid is returned when a token regeneration is requested for an
// order that never went through payment confirmation.
var ErrOrderNotPaid = errors.New("order has not been paid")

// OrderStore is the slice of the order repository the orchestrator uses.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	Save(ctx context.Context, order *domain.Order) error
}

// TokenStore mints and invalidates delivery tokens.
type TokenStore interface {
	Mint(ctx context.Context, order *domain.Order) (*domain.DeliveryToken, error)
	Delete(ctx context.Context, token string) error
}

// LicenseStore ensures a license exists for a paid order.
type LicenseStore interface {
	Ensure(ctx context.Context, order *domain.Order) (string, int, error)
}

// PaidResult is what a payment confirmation hands back to the caller.
type PaidResult struct {
	OrderID        string
	Token          string
	TokenExpiresAt time.Time
	LicenseKey     string
	ActivationsMax int
}

// Service orchestrates the order/token/license transitions.
type Service struct {
	orders   OrderStore
	tokens   TokenStore
	licenses LicenseStore
	metrics  *infrastructure.EngineMetrics
	logger   *slog.Logger
}

// New creates the orchestrator. metrics may be nil.
func New(orders OrderStore, tokens TokenStore, licenses LicenseStore, metrics *infrastructure.EngineMetrics, logger *slog.Logger) *Service {
	return &Service{
		orders:   orders,
		tokens:   tokens,
		licenses: licenses,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "lifecycle")),
	}
}

// MarkPaidAndTokenize transitions an order to paid: ensure the license,
// mint a fresh delivery token, persist the updated order. Calling it on an
// already-paid order reuses the license key and mints a new token, which
// doubles as the resend path.
func (s *Service) MarkPaidAndTokenize(ctx context.Context, order *domain.Order) (*PaidResult, error) {
	licenseKey, activationsMax, err := s.licenses.Ensure(ctx, order)
	if err != nil {
		return nil, err
	}
	order.LicenseKey = licenseKey
	order.ActivationsMax = activationsMax

	token, err := s.tokens.Mint(ctx, order)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusPaid
	order.DeliverToken = token.Token
	order.TokenExpiresAt = token.ExpiresAt
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsApplied.Add(ctx, 1)
		s.metrics.TokensMinted.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", "payment")))
	}
	s.logger.InfoContext(ctx, "order marked paid",
		slog.String("order_id", order.OrderID),
		slog.Time("token_expires_at", token.ExpiresAt))

	return &PaidResult{
		OrderID:        order.OrderID,
		Token:          token.Token,
		TokenExpiresAt: token.ExpiresAt,
		LicenseKey:     licenseKey,
		ActivationsMax: activationsMax,
	}, nil
}

// RegenerateToken replaces the delivery token of a paid order. The old
// token is deleted first, best-effort: a failure to delete does not block
// minting the replacement.
func (s *Service) RegenerateToken(ctx context.Context, order *domain.Order) (*PaidResult, error) {
	if !order.IsPaid() {
		return nil, ErrOrderNotPaid
	}

	if order.DeliverToken != "" {
		if err := s.tokens.Delete(ctx, order.DeliverToken); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced token",
				slog.String("order_id", order.OrderID),
				slog.String("error", err.Error()))
		}
	}

	token, err := s.tokens.Mint(ctx, order)
	if err != nil {
		return nil, err
	}

	order.DeliverToken = token.Token
	order.TokenExpiresAt = token.ExpiresAt
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensMinted.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", "regenerate")))
	}
	s.logger.InfoContext(ctx, "delivery token regenerated",
		slog.String("order_id", order.OrderID),
		slog.Time("token_expires_at", token.ExpiresAt))

	return &PaidResult{
		OrderID:        order.OrderID,
		Token:          token.Token,
		TokenExpiresAt: token.ExpiresAt,
		LicenseKey:     order.LicenseKey,
		ActivationsMax: order.ActivationsMax,
	}, nil
}
