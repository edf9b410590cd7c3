package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "valeshop/internal/errors"
	"valeshop/internal/keygen"
	"valeshop/internal/licenses"
	"valeshop/internal/lifecycle"
	"valeshop/internal/orders"
	"valeshop/pkg/contracts/domain"
)

// AdminHandler serves the operator surface: manual payment confirmation,
// token regeneration, order seeding and license administration. Every route
// here sits behind the admin shared secret.
type AdminHandler struct {
	orders    OrderService
	lifecycle LifecycleService
	licenses  LicenseService
	logger    *slog.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(orders OrderService, lc LifecycleService, lic LicenseService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		orders:    orders,
		lifecycle: lc,
		licenses:  lic,
		logger:    logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns the admin route tree, mounted under /api/admin.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/mark-paid", h.MarkPaid)
	r.Get("/orders", h.ListOrders)
	r.Post("/regenerate-token", h.RegenerateToken)
	r.Post("/create-order", h.CreateOrder)
	r.Get("/licenses", h.ListLicenses)
	r.Post("/revoke-license", h.RevokeLicense)
	return r
}

// OrderRef names the order an admin action applies to.
type OrderRef struct {
	OrderID string `json:"orderId" validate:"required"`
}

// Bind implements render.Binder.
func (o *OrderRef) Bind(r *http.Request) error {
	return validate.Struct(o)
}

// AdminCreateOrderRequest seeds an order without going through checkout.
// Status may be set explicitly, but the delivery token and license key are
// still only issued by the mark-paid transition.
type AdminCreateOrderRequest struct {
	Status      string          `json:"status"`
	ProductID   string          `json:"productId"`
	Slug        string          `json:"slug"`
	ProductName string          `json:"productName"`
	Subtotal    float64         `json:"subtotal" validate:"gte=0"`
	Total       float64         `json:"total" validate:"gte=0"`
	Coupon      json.RawMessage `json:"coupon,omitempty"`
	PayLink     string          `json:"payLink"`
	AndroidURL  string          `json:"android_url"`
	IOSLink     string          `json:"ios_link"`
	WebLink     string          `json:"web_link"`
}

// Bind implements render.Binder.
func (a *AdminCreateOrderRequest) Bind(r *http.Request) error {
	if a.Status != "" &&
		a.Status != string(domain.OrderStatusCreated) &&
		a.Status != string(domain.OrderStatusPaid) {
		return errors.New("status must be created or paid")
	}
	return validate.Struct(a)
}

// LicenseRef names the license an admin action applies to.
type LicenseRef struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
}

// Bind implements render.Binder.
func (l *LicenseRef) Bind(r *http.Request) error {
	return validate.Struct(l)
}

// AdminOrderItem is one row of the admin order listing.
type AdminOrderItem struct {
	OrderID        string  `json:"orderId"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
	ProductName    string  `json:"productName"`
	Total          float64 `json:"total"`
	DeliverToken   string  `json:"deliverToken"`
	ExpiresAt      string  `json:"expiresAt"`
	LicenseKey     string  `json:"licenseKey"`
	ActivationsMax int     `json:"activationsMax"`
}

// ListResponse is the shared pagination envelope for admin listings.
type ListResponse struct {
	Items   interface{} `json:"items"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"hasMore"`
}

// MarkPaid handles POST /api/admin/mark-paid, the manual equivalent of the
// payment webhook. Re-running it on a paid order is the resend path.
func (h *AdminHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req OrderRef
	if err := render.Bind(r, &req); err != nil {
		renderError(w, r, apierrors.ErrValidation("orderId", "orderId is required"))
		return
	}

	order, err := h.orders.Get(r.Context(), req.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		renderError(w, r, apierrors.ErrOrderNotFound)
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}

	result, err := h.lifecycle.MarkPaidAndTokenize(r.Context(), order)
	if err != nil {
		renderError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "order manually marked paid",
		slog.String("order_id", req.OrderID))

	render.JSON(w, r, PaidResponse{
		OK:             true,
		OrderID:        result.OrderID,
		Token:          result.Token,
		LicenseKey:     result.LicenseKey,
		ActivationsMax: result.ActivationsMax,
	})
}

// ListOrders handles GET /api/admin/orders with limit/cursor pagination.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")

	items, nextCursor, hasMore, err := h.orders.List(r.Context(), limit, cursor)
	if err != nil {
		renderError(w, r, err)
		return
	}

	rows := make([]AdminOrderItem, 0, len(items))
	for _, order := range items {
		rows = append(rows, AdminOrderItem{
			OrderID:        order.OrderID,
			Status:         string(order.Status),
			CreatedAt:      timeString(order.CreatedAt),
			ProductName:    order.ProductName,
			Total:          order.Total,
			DeliverToken:   order.DeliverToken,
			ExpiresAt:      timeString(order.TokenExpiresAt),
			LicenseKey:     order.LicenseKey,
			ActivationsMax: order.ActivationsMax,
		})
	}

	render.JSON(w, r, ListResponse{Items: rows, Cursor: nextCursor, HasMore: hasMore})
}

// RegenerateToken handles POST /api/admin/regenerate-token, for customers
// whose delivery link was lost or lapsed before redemption.
func (h *AdminHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	var req OrderRef
	if err := render.Bind(r, &req); err != nil {
		renderError(w, r, apierrors.ErrValidation("orderId", "orderId is required"))
		return
	}

	order, err := h.orders.Get(r.Context(), req.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		renderError(w, r, apierrors.ErrOrderNotFound)
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}

	result, err := h.lifecycle.RegenerateToken(r.Context(), order)
	if errors.Is(err, lifecycle.ErrOrderNotPaid) {
		renderError(w, r, apierrors.ErrOrderNotPaid)
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":      true,
		"orderId": result.OrderID,
		"token":   result.Token,
	})
}

// CreateOrder handles POST /api/admin/create-order for manual operations
// without a checkout flow.
func (h *AdminHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req AdminCreateOrderRequest
	if err := render.Bind(r, &req); err != nil {
		renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	order, err := h.orders.Create(r.Context(), orders.CreateFields{
		ProductID:   req.ProductID,
		Slug:        req.Slug,
		ProductName: req.ProductName,
		Subtotal:    req.Subtotal,
		Total:       req.Total,
		Coupon:      req.Coupon,
		PayLink:     req.PayLink,
		AndroidURL:  req.AndroidURL,
		IOSLink:     req.IOSLink,
		WebLink:     req.WebLink,
		Status:      domain.OrderStatus(req.Status),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"ok":      true,
		"orderId": order.OrderID,
	})
}

// ListLicenses handles GET /api/admin/licenses.
func (h *AdminHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")

	items, nextCursor, hasMore, err := h.licenses.List(r.Context(), limit, cursor)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if items == nil {
		items = []licenses.Summary{}
	}

	render.JSON(w, r, ListResponse{Items: items, Cursor: nextCursor, HasMore: hasMore})
}

// RevokeLicense handles POST /api/admin/revoke-license. Idempotent and
// terminal: a revoked license never validates again.
func (h *AdminHandler) RevokeLicense(w http.ResponseWriter, r *http.Request) {
	var req LicenseRef
	if err := render.Bind(r, &req); err != nil {
		renderError(w, r, apierrors.ErrValidation("licenseKey", "licenseKey is required"))
		return
	}

	key := keygen.Normalize(req.LicenseKey)
	lic, err := h.licenses.Revoke(r.Context(), key)
	if errors.Is(err, licenses.ErrNotFound) {
		renderError(w, r, apierrors.ErrLicenseNotFound)
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "license revoked by admin",
		slog.String("order_id", lic.OrderID))

	render.JSON(w, r, map[string]interface{}{
		"ok":         true,
		"licenseKey": lic.LicenseKey,
	})
}
