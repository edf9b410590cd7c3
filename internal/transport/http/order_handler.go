package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "valeshop/internal/errors"
	"valeshop/internal/infrastructure"
	"valeshop/internal/orders"
	"valeshop/pkg/contracts/domain"
)

// OrderHandler serves the public order surface: checkout creates orders,
// the order page polls their status.
type OrderHandler struct {
	orders  OrderService
	urls    URLBuilder
	metrics *infrastructure.EngineMetrics
	logger  *slog.Logger
}

// NewOrderHandler creates an order handler. metrics may be nil.
func NewOrderHandler(orders OrderService, urls URLBuilder, metrics *infrastructure.EngineMetrics, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		urls:    urls,
		metrics: metrics,
		logger:  logger.With(slog.String("handler", "order")),
	}
}

// CreateOrderRequest is the checkout payload. Links come from the storefront
// as-is; validating them against the catalog is a collaborator concern.
type CreateOrderRequest struct {
	ProductID   string          `json:"productId" validate:"required"`
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
func (c *CreateOrderRequest) Bind(r *http.Request) error {
	return validate.Struct(c)
}

// CreateOrderResponse points the storefront at the order page and the
// external payment link.
type CreateOrderResponse struct {
	OrderID  string `json:"orderId"`
	OrderURL string `json:"orderUrl"`
	PayLink  string `json:"payLink"`
}

// OrderStatusResponse is the public projection of an order. DeliverURL is
// only populated once the order is paid and carries a token.
type OrderStatusResponse struct {
	OrderID        string  `json:"orderId"`
	Status         string  `json:"status"`
	ProductName    string  `json:"productName"`
	Total          float64 `json:"total"`
	DeliverURL     string  `json:"deliverUrl"`
	ExpiresAt      string  `json:"expiresAt"`
	LicenseKey     string  `json:"licenseKey"`
	ActivationsMax int     `json:"activationsMax"`
}

// Create handles POST /api/order/create.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
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
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.OrdersCreated.Add(r.Context(), 1)
	}

	render.JSON(w, r, CreateOrderResponse{
		OrderID:  order.OrderID,
		OrderURL: h.urls.OrderURL(order.OrderID),
		PayLink:  order.PayLink,
	})
}

// Get handles GET /api/order/{orderID}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		renderError(w, r, apierrors.ErrValidation("orderId", "orderId is required"))
		return
	}

	order, err := h.orders.Get(r.Context(), orderID)
	if errors.Is(err, orders.ErrNotFound) {
		renderError(w, r, apierrors.ErrOrderNotFound)
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, h.statusResponse(order))
}

func (h *OrderHandler) statusResponse(order *domain.Order) OrderStatusResponse {
	deliverURL := ""
	if order.IsPaid() && order.DeliverToken != "" {
		deliverURL = h.urls.DeliverURL(order.DeliverToken)
	}
	return OrderStatusResponse{
		OrderID:        order.OrderID,
		Status:         string(order.Status),
		ProductName:    order.ProductName,
		Total:          order.Total,
		DeliverURL:     deliverURL,
		ExpiresAt:      timeString(order.TokenExpiresAt),
		LicenseKey:     order.LicenseKey,
		ActivationsMax: order.ActivationsMax,
	}
}
