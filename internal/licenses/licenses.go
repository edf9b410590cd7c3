// Package licenses owns the license records and the activation rules: at
// most activationsMax distinct devices per key, and revocation is terminal.
package licenses

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

const keyPrefix = "license:"

var (
	// ErrNotFound is returned when no license record exists for a key.
	ErrNotFound = errors.New("license not found")

	// ErrRevoked is returned for any activation attempt on a revoked
	// license. Revocation is one-way; there is no un-revoke.
	ErrRevoked = errors.New("license revoked")

	// ErrLimitReached is returned when a new device would exceed the
	// activation cap. No state changes.
	ErrLimitReached = errors.New("activation limit reached")
)

// ActivationStatus distinguishes a fresh activation from an idempotent replay.
type ActivationStatus string

const (
	StatusActivated        ActivationStatus = "activated"
	StatusAlreadyActivated ActivationStatus = "already_activated"
)

// ActivationResult reports the outcome of a successful Activate call.
type ActivationResult struct {
	Status          ActivationStatus
	ActivationsLeft int
}

// ValidationResult is the answer to "may this device use this license".
// Counts are populated for every known license, valid or not, so callers
// can render remaining slots before activating.
type ValidationResult struct {
	Valid           bool
	Reason          string // invalid, revoked; empty when the key is known and live
	ActivationsMax  int
	ActivationsUsed int
}

// Summary is the admin-listing projection of a license record.
type Summary struct {
	LicenseKey      string    `json:"licenseKey"`
	OrderID         string    `json:"orderId"`
	ProductID       string    `json:"productId"`
	ProductName     string    `json:"productName"`
	ActivationsMax  int       `json:"activationsMax"`
	ActivationsUsed int       `json:"activationsUsed"`
	Revoked         bool      `json:"revoked"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Repository persists licenses with a long TTL (default one year).
type Repository struct {
	store  store.Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New creates a license repository writing records with the given TTL.
func New(s store.Store, ttl time.Duration, logger *slog.Logger) *Repository {
	return &Repository{
		store:  s,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "licenses")),
	}
}

// WithClock overrides the repository clock. Test hook.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Ensure makes sure the order has a license key and that a record exists
// for it. Idempotent: an order that already carries a key reuses it, and an
// existing record is never overwritten, so re-applying a payment cannot
// truncate the device list.
func (r *Repository) Ensure(ctx context.Context, order *domain.Order) (string, int, error) {
	max := order.ActivationsMax
	if max <= 0 {
		max = domain.DefaultActivationsMax
	}

	key := keygen.Normalize(order.LicenseKey)
	if key == "" {
		key = keygen.LicenseKey()
	}

	_, err := r.Get(ctx, key)
	if err == nil {
		return key, max, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", 0, err
	}

	now := r.now().UTC()
	lic := &domain.License{
		LicenseKey:     key,
		OrderID:        order.OrderID,
		ProductID:      order.ProductID,
		ProductName:    order.ProductName,
		ActivationsMax: max,
		Devices:        []string{},
		Revoked:        false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.put(ctx, lic); err != nil {
		return "", 0, err
	}

	r.logger.InfoContext(ctx, "license created",
		slog.String("order_id", order.OrderID),
		slog.Int("activations_max", max))
	return key, max, nil
}

// Get loads a license by key. The key is normalized before lookup.
func (r *Repository) Get(ctx context.Context, licenseKey string) (*domain.License, error) {
	key := keygen.Normalize(licenseKey)
	raw, err := r.store.Get(ctx, keyPrefix+key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load license: %w", err)
	}

	var lic domain.License
	if err := json.Unmarshal(raw, &lic); err != nil {
		return nil, fmt.Errorf("decode license record: %w", err)
	}
	if lic.Devices == nil {
		lic.Devices = []string{}
	}
	return &lic, nil
}

// Activate binds deviceID to the license, consuming one slot. Re-activating
// an already-bound device is an idempotent no-op reported as such.
func (r *Repository) Activate(ctx context.Context, licenseKey, deviceID string) (*ActivationResult, error) {
	lic, err := r.Get(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if lic.Revoked {
		return nil, ErrRevoked
	}

	if lic.HasDevice(deviceID) {
		return &ActivationResult{
			Status:          StatusAlreadyActivated,
			ActivationsLeft: lic.ActivationsLeft(),
		}, nil
	}
	if len(lic.Devices) >= lic.ActivationsMax {
		return nil, ErrLimitReached
	}

	lic.Devices = append(lic.Devices, deviceID)
	lic.UpdatedAt = r.now().UTC()
	if err := r.put(ctx, lic); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "device activated",
		slog.String("order_id", lic.OrderID),
		slog.Int("activations_used", len(lic.Devices)),
		slog.Int("activations_max", lic.ActivationsMax))
	return &ActivationResult{
		Status:          StatusActivated,
		ActivationsLeft: lic.ActivationsLeft(),
	}, nil
}

// Validate answers whether deviceID may use the license right now. Unknown
// keys report reason invalid; revoked licenses report reason revoked but
// still expose their counts.
func (r *Repository) Validate(ctx context.Context, licenseKey, deviceID string) (*ValidationResult, error) {
	lic, err := r.Get(ctx, licenseKey)
	if errors.Is(err, ErrNotFound) {
		return &ValidationResult{Valid: false, Reason: "invalid"}, nil
	}
	if err != nil {
		return nil, err
	}

	res := &ValidationResult{
		ActivationsMax:  lic.ActivationsMax,
		ActivationsUsed: len(lic.Devices),
	}
	if lic.Revoked {
		res.Reason = "revoked"
		return res, nil
	}
	res.Valid = lic.HasDevice(deviceID)
	return res, nil
}

// Revoke marks the license revoked. Idempotent, and there is no way back.
func (r *Repository) Revoke(ctx context.Context, licenseKey string) (*domain.License, error) {
	lic, err := r.Get(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	lic.Revoked = true
	lic.UpdatedAt = r.now().UTC()
	if err := r.put(ctx, lic); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "license revoked",
		slog.String("order_id", lic.OrderID))
	return lic, nil
}

// List returns one page of license summaries in key order, re-sorted by
// creation time descending within the page.
func (r *Repository) List(ctx context.Context, limit int, cursor string) ([]Summary, string, bool, error) {
	page, err := r.store.List(ctx, keyPrefix, limit, cursor)
	if err != nil {
		return nil, "", false, fmt.Errorf("list licenses: %w", err)
	}

	items := make([]Summary, 0, len(page.Keys))
	for _, key := range page.Keys {
		raw, err := r.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", false, fmt.Errorf("load %s: %w", key, err)
		}
		var lic domain.License
		if err := json.Unmarshal(raw, &lic); err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable license record",
				slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		items = append(items, Summary{
			LicenseKey:      lic.LicenseKey,
			OrderID:         lic.OrderID,
			ProductID:       lic.ProductID,
			ProductName:     lic.ProductName,
			ActivationsMax:  lic.ActivationsMax,
			ActivationsUsed: len(lic.Devices),
			Revoked:         lic.Revoked,
			CreatedAt:       lic.CreatedAt,
			UpdatedAt:       lic.UpdatedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, page.NextCursor, page.HasMore, nil
}

func (r *Repository) put(ctx context.Context, lic *domain.License) error {
	raw, err := json.Marshal(lic)
	if err != nil {
		return fmt.Errorf("encode license record: %w", err)
	}
	if err := r.store.Put(ctx, keyPrefix+lic.LicenseKey, raw, r.ttl); err != nil {
		return fmt.Errorf("save license record: %w", err)
	}
	return nil
}
