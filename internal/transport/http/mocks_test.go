package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"valeshop/internal/licenses"
	"valeshop/internal/lifecycle"
	"valeshop/internal/orders"
	"valeshop/pkg/contracts/domain"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, fields orders.CreateFields) (*domain.Order, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context, limit int, cursor string) ([]domain.Order, string, bool, error) {
	args := m.Called(ctx, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]domain.Order), args.String(1), args.Bool(2), args.Error(3)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) MarkPaidAndTokenize(ctx context.Context, order *domain.Order) (*lifecycle.PaidResult, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.PaidResult), args.Error(1)
}

func (m *MockLifecycleService) RegenerateToken(ctx context.Context, order *domain.Order) (*lifecycle.PaidResult, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lifecycle.PaidResult), args.Error(1)
}

type MockLicenseService struct {
	mock.Mock
}

func (m *MockLicenseService) Activate(ctx context.Context, licenseKey, deviceID string) (*licenses.ActivationResult, error) {
	args := m.Called(ctx, licenseKey, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenses.ActivationResult), args.Error(1)
}

func (m *MockLicenseService) Validate(ctx context.Context, licenseKey, deviceID string) (*licenses.ValidationResult, error) {
	args := m.Called(ctx, licenseKey, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*licenses.ValidationResult), args.Error(1)
}

func (m *MockLicenseService) Revoke(ctx context.Context, licenseKey string) (*domain.License, error) {
	args := m.Called(ctx, licenseKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.License), args.Error(1)
}

func (m *MockLicenseService) List(ctx context.Context, limit int, cursor string) ([]licenses.Summary, string, bool, error) {
	args := m.Called(ctx, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]licenses.Summary), args.String(1), args.Bool(2), args.Error(3)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Redeem(ctx context.Context, token string) (*domain.DeliveryToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryToken), args.Error(1)
}
