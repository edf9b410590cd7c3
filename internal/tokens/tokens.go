// Package tokens owns the short-lived delivery token records. A token is a
// denormalized snapshot of a paid order: redeeming it never touches the
// order record.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"valeshop/internal/keygen"
	"valeshop/internal/store"
	"valeshop/pkg/contracts/domain"
)

const (
	keyPrefix = "token:"
	idPrefix  = "TOK"
)

var (
	// ErrNotFound is returned when no token record exists; deliberately the
	// same outcome for never-issued and already-reaped tokens.
	ErrNotFound = errors.New("token invalid or expired")

	// ErrExpired is returned when the record exists but its expiry stamp has
	// passed. The record is deleted as a side effect, so the next redemption
	// of the same token reports ErrNotFound.
	ErrExpired = errors.New("token expired")
)

// Repository persists delivery tokens. Record lifetime is the redeemable
// window stamped into the record; store TTL is a longer backstop so an
// expired record can still be observed (and reaped) before the store drops it.
type Repository struct {
	store    store.Store
	lifetime time.Duration
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a token repository. lifetime governs the redeemable window,
// ttl the store-level expiry of the record itself.
func New(s store.Store, lifetime, ttl time.Duration, logger *slog.Logger) *Repository {
	return &Repository{
		store:    s,
		lifetime: lifetime,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "tokens")),
	}
}

// WithClock overrides the repository clock. Test hook.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Mint issues a fresh token snapshotting the order's delivery data. The
// order must already carry its license key.
func (r *Repository) Mint(ctx context.Context, order *domain.Order) (*domain.DeliveryToken, error) {
	token := &domain.DeliveryToken{
		Token:          keygen.ID(idPrefix),
		Used:           false,
		ExpiresAt:      r.now().UTC().Add(r.lifetime),
		OrderID:        order.OrderID,
		ProductID:      order.ProductID,
		Slug:           order.Slug,
		ProductName:    order.ProductName,
		LicenseKey:     order.LicenseKey,
		ActivationsMax: order.ActivationsMax,
		AndroidURL:     order.AndroidURL,
		IOSLink:        order.IOSLink,
		WebLink:        order.WebLink,
	}

	if err := r.put(ctx, token); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "delivery token minted",
		slog.String("order_id", order.OrderID),
		slog.Time("expires_at", token.ExpiresAt))
	return token, nil
}

// Redeem looks up a token and, when still valid, marks it used and
// re-persists it with a refreshed store TTL. Redemption is not single-use:
// the used flag is informational so a reloaded delivery page keeps working.
func (r *Repository) Redeem(ctx context.Context, token string) (*domain.DeliveryToken, error) {
	raw, err := r.store.Get(ctx, keyPrefix+token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	var rec domain.DeliveryToken
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}

	if rec.Expired(r.now()) {
		if err := r.store.Delete(ctx, keyPrefix+token); err != nil {
			r.logger.WarnContext(ctx, "failed to reap expired token",
				slog.String("order_id", rec.OrderID), slog.String("error", err.Error()))
		}
		return nil, ErrExpired
	}

	rec.Used = true
	if err := r.put(ctx, &rec); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "delivery token redeemed",
		slog.String("order_id", rec.OrderID))
	return &rec, nil
}

// Delete removes a token record. Best-effort: used when regenerating so the
// replaced token stops redeeming.
func (r *Repository) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.store.Delete(ctx, keyPrefix+token)
}

func (r *Repository) put(ctx context.Context, token *domain.DeliveryToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}
	if err := r.store.Put(ctx, keyPrefix+token.Token, raw, r.ttl); err != nil {
		return fmt.Errorf("save token record: %w", err)
	}
	return nil
}
