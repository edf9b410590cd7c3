// Package orders owns the order records. An order is the authoritative
// status of a purchase attempt; tokens and licenses copy from it but never
// write back.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"valeshop/internal/keygen"
	"valeshop/internal/store"
	"valeshop/pkg/contracts/domain"
)

const (
	keyPrefix = "order:"
	idPrefix  = "ORD"
)

// ErrNotFound is returned when no order exists for the given identifier.
var ErrNotFound = errors.New("order not found")

// CreateFields are the caller-supplied attributes of a new order. Everything
// else (identifier, status, timestamps) is generated here.
type CreateFields struct {
	ProductID   string
	Slug        string
	ProductName string
	Subtotal    float64
	Total       float64
	Coupon      json.RawMessage
	PayLink     string
	AndroidURL  string
	IOSLink     string
	WebLink     string

	// Status lets the admin surface seed an order in a specific state.
	// Empty means created.
	Status domain.OrderStatus
}

// Repository persists orders with a long TTL; orders are never hard-deleted,
// they age out of the store.
type Repository struct {
	store  store.Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New creates an order repository writing records with the given TTL.
func New(s store.Store, ttl time.Duration, logger *slog.Logger) *Repository {
	return &Repository{
		store:  s,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "orders")),
	}
}

// WithClock overrides the repository clock. Test hook.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Create generates a fresh order in status created and persists it.
func (r *Repository) Create(ctx context.Context, fields CreateFields) (*domain.Order, error) {
	status := fields.Status
	if status == "" {
		status = domain.OrderStatusCreated
	}

	order := &domain.Order{
		OrderID:        keygen.ID(idPrefix),
		Status:         status,
		CreatedAt:      r.now().UTC(),
		ProductID:      fields.ProductID,
		Slug:           fields.Slug,
		ProductName:    fields.ProductName,
		Subtotal:       fields.Subtotal,
		Total:          fields.Total,
		Coupon:         fields.Coupon,
		PayLink:        fields.PayLink,
		AndroidURL:     fields.AndroidURL,
		IOSLink:        fields.IOSLink,
		WebLink:        fields.WebLink,
		ActivationsMax: domain.DefaultActivationsMax,
	}

	if err := r.Save(ctx, order); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.OrderID),
		slog.String("product_id", order.ProductID),
		slog.Float64("total", order.Total))
	return order, nil
}

// Get loads an order by identifier.
func (r *Repository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	raw, err := r.store.Get(ctx, keyPrefix+orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return &order, nil
}

// Save overwrites the full order record, resetting its TTL. There is no
// partial-update primitive; callers read-modify-write the whole record.
func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.OrderID, err)
	}
	if err := r.store.Put(ctx, keyPrefix+order.OrderID, raw, r.ttl); err != nil {
		return fmt.Errorf("save order %s: %w", order.OrderID, err)
	}
	return nil
}

// List returns one page of orders in the store's key order, re-sorted by
// creation time descending. The sort is page-local: chronological order is
// not guaranteed across pages.
func (r *Repository) List(ctx context.Context, limit int, cursor string) ([]domain.Order, string, bool, error) {
	page, err := r.store.List(ctx, keyPrefix, limit, cursor)
	if err != nil {
		return nil, "", false, fmt.Errorf("list orders: %w", err)
	}

	items := make([]domain.Order, 0, len(page.Keys))
	for _, key := range page.Keys {
		raw, err := r.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			// Key expired between List and Get; skip it.
			continue
		}
		if err != nil {
			return nil, "", false, fmt.Errorf("load %s: %w", key, err)
		}
		var order domain.Order
		if err := json.Unmarshal(raw, &order); err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable order record",
				slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		items = append(items, order)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, page.NextCursor, page.HasMore, nil
}
