package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valeshop/internal/licenses"
	"valeshop/internal/lifecycle"
	"valeshop/internal/orders"
	"valeshop/pkg/contracts/domain"
)

type adminFixture struct {
	orders    *MockOrderService
	lifecycle *MockLifecycleService
	licenses  *MockLicenseService
	router    chi.Router
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		orders:    new(MockOrderService),
		lifecycle: new(MockLifecycleService),
		licenses:  new(MockLicenseService),
	}
	f.router = NewAdminHandler(f.orders, f.lifecycle, f.licenses, testLogger()).Routes()
	return f
}

func TestAdminMarkPaid(t *testing.T) {
	f := newAdminFixture()
	order := &domain.Order{OrderID: "ORD-AAA2222222", Status: domain.OrderStatusCreated}
	f.orders.On("Get", mock.Anything, "ORD-AAA2222222").Return(order, nil)
	f.lifecycle.On("MarkPaidAndTokenize", mock.Anything, order).Return(&lifecycle.PaidResult{
		OrderID:    "ORD-AAA2222222",
		Token:      "TOK-ABCDEFGHJK",
		LicenseKey: "VG-ABCD-EFGH-JKLM",
	}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/mark-paid", map[string]string{
		"orderId": "ORD-AAA2222222",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PaidResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.OK)
	assert.Equal(t, "TOK-ABCDEFGHJK", resp.Token)
}

func TestAdminListOrders(t *testing.T) {
	f := newAdminFixture()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.orders.On("List", mock.Anything, 2, "").Return([]domain.Order{
		{OrderID: "ORD-BBB3333333", Status: domain.OrderStatusPaid, CreatedAt: created.Add(time.Minute), Total: 20},
		{OrderID: "ORD-AAA2222222", Status: domain.OrderStatusCreated, CreatedAt: created, Total: 10},
	}, "order:ORD-BBB3333333", true, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items   []AdminOrderItem `json:"items"`
		Cursor  string           `json:"cursor"`
		HasMore bool             `json:"hasMore"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "ORD-BBB3333333", resp.Items[0].OrderID)
	assert.Equal(t, "2025-06-01T12:01:00Z", resp.Items[0].CreatedAt)
	assert.Equal(t, "order:ORD-BBB3333333", resp.Cursor)
	assert.True(t, resp.HasMore)
}

func TestAdminRegenerateToken(t *testing.T) {
	f := newAdminFixture()
	order := &domain.Order{
		OrderID:      "ORD-AAA2222222",
		Status:       domain.OrderStatusPaid,
		DeliverToken: "TOK-OLDOLDOLD2",
	}
	f.orders.On("Get", mock.Anything, "ORD-AAA2222222").Return(order, nil)
	f.lifecycle.On("RegenerateToken", mock.Anything, order).Return(&lifecycle.PaidResult{
		OrderID: "ORD-AAA2222222",
		Token:   "TOK-NEWNEWNEW2",
	}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/regenerate-token", map[string]string{
		"orderId": "ORD-AAA2222222",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "TOK-NEWNEWNEW2", resp["token"])
}

func TestAdminRegenerateTokenUnpaidOrder(t *testing.T) {
	f := newAdminFixture()
	order := &domain.Order{OrderID: "ORD-AAA2222222", Status: domain.OrderStatusCreated}
	f.orders.On("Get", mock.Anything, "ORD-AAA2222222").Return(order, nil)
	f.lifecycle.On("RegenerateToken", mock.Anything, order).Return(nil, lifecycle.ErrOrderNotPaid)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/regenerate-token", map[string]string{
		"orderId": "ORD-AAA2222222",
	}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORDER_NOT_PAID")
}

func TestAdminCreateOrder(t *testing.T) {
	f := newAdminFixture()
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(fields orders.CreateFields) bool {
		return fields.Status == domain.OrderStatusPaid && fields.ProductID == "app-1"
	})).Return(&domain.Order{OrderID: "ORD-AAA2222222"}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/create-order", map[string]interface{}{
		"productId": "app-1",
		"status":    "paid",
		"total":     10.0,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	f.orders.AssertExpectations(t)
}

func TestAdminCreateOrderRejectsUnknownStatus(t *testing.T) {
	f := newAdminFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/create-order", map[string]interface{}{
		"productId": "app-1",
		"status":    "refunded",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.orders.AssertNotCalled(t, "Create")
}

func TestAdminListLicenses(t *testing.T) {
	f := newAdminFixture()
	f.licenses.On("List", mock.Anything, 50, "").Return([]licenses.Summary{
		{LicenseKey: "VG-ABCD-EFGH-JKLM", OrderID: "ORD-AAA2222222", ActivationsMax: 2, ActivationsUsed: 1},
	}, "", false, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/licenses", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items   []licenses.Summary `json:"items"`
		HasMore bool               `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].ActivationsUsed)
}

func TestAdminRevokeLicense(t *testing.T) {
	f := newAdminFixture()
	f.licenses.On("Revoke", mock.Anything, "VG-ABCD-EFGH-JKLM").Return(&domain.License{
		LicenseKey: "VG-ABCD-EFGH-JKLM",
		OrderID:    "ORD-AAA2222222",
		Revoked:    true,
	}, nil)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/revoke-license", map[string]string{
		"licenseKey": "vg-abcd-efgh-jklm",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	assert.Equal(t, true, resp["ok"])
	f.licenses.AssertExpectations(t)
}

func TestAdminRevokeLicenseUnknown(t *testing.T) {
	f := newAdminFixture()
	f.licenses.On("Revoke", mock.Anything, mock.Anything).Return(nil, licenses.ErrNotFound)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(t, http.MethodPost, "/revoke-license", map[string]string{
		"licenseKey": "VG-ZZZZ-ZZZZ-ZZZZ",
	}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "LICENSE_NOT_FOUND")
}
