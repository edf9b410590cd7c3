package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valeshop/internal/store/memstore"
	"valeshop/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture() (*Repository, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	repo := New(memstore.NewWithClock(clock), 30*24*time.Hour, testLogger()).WithClock(clock)
	return repo, &now
}

func TestCreateDefaults(t *testing.T) {
	repo, _ := newFixture()
	ctx := context.Background()

	order, err := repo.Create(ctx, CreateFields{
		ProductID:   "app-1",
		Slug:        "vale-notes",
		ProductName: "Vale Notes",
		Subtotal:    49.90,
		Total:       49.90,
		PayLink:     "https://pay.example/abc",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-[A-Z2-9]{10}$`, order.OrderID)
	assert.Equal(t, domain.OrderStatusCreated, order.Status)
	assert.Equal(t, domain.DefaultActivationsMax, order.ActivationsMax)
	assert.Empty(t, order.DeliverToken)
	assert.Empty(t, order.LicenseKey)
	assert.True(t, order.TokenExpiresAt.IsZero())
	assert.False(t, order.IsPaid())
}

func TestCreateWithExplicitStatus(t *testing.T) {
	repo, _ := newFixture()

	order, err := repo.Create(context.Background(), CreateFields{
		ProductID: "app-1",
		Status:    domain.OrderStatusPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
}

func TestGetRoundTrip(t *testing.T) {
	repo, _ := newFixture()
	ctx := context.Background()

	coupon := json.RawMessage(`{"code":"LAUNCH10","percent":10}`)
	created, err := repo.Create(ctx, CreateFields{
		ProductID: "app-1",
		Total:     44.91,
		Coupon:    coupon,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, got.OrderID)
	assert.Equal(t, 44.91, got.Total)
	assert.JSONEq(t, string(coupon), string(got.Coupon))
}

func TestGetNotFound(t *testing.T) {
	repo, _ := newFixture()
	_, err := repo.Get(context.Background(), "ORD-MISSING999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	repo, _ := newFixture()
	ctx := context.Background()

	order, err := repo.Create(ctx, CreateFields{ProductID: "app-1"})
	require.NoError(t, err)

	order.Status = domain.OrderStatusPaid
	order.LicenseKey = "VG-ABCD-EFGH-JKLM"
	order.DeliverToken = "TOK-ABCDEFGHJK"
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid())
	assert.Equal(t, "VG-ABCD-EFGH-JKLM", got.LicenseKey)
}

func TestListSortsPageByCreatedAtDesc(t *testing.T) {
	repo, now := newFixture()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		order, err := repo.Create(ctx, CreateFields{ProductID: "app-1"})
		require.NoError(t, err)
		ids = append(ids, order.OrderID)
		*now = now.Add(time.Minute)
	}

	items, _, hasMore, err := repo.List(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.False(t, hasMore)

	// Newest first within the page.
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i-1].CreatedAt.Before(items[i].CreatedAt))
	}
	assert.Equal(t, ids[2], items[0].OrderID)
}

func TestListPagination(t *testing.T) {
	repo, now := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, CreateFields{ProductID: "app-1"})
		require.NoError(t, err)
		*now = now.Add(time.Second)
	}

	seen := make(map[string]bool)
	cursor := ""
	for {
		items, next, hasMore, err := repo.List(ctx, 2, cursor)
		require.NoError(t, err)
		for _, it := range items {
			require.False(t, seen[it.OrderID], "order %s listed twice", it.OrderID)
			seen[it.OrderID] = true
		}
		if !hasMore {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 5)
}
