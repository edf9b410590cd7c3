package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "valeshop/internal/errors"
	"valeshop/internal/orders"
)

// PaymentHandler applies payment confirmations coming from the external
// payment provider's webhook. Authentication happens in middleware; by the
// time a request lands here it carries a valid webhook secret.
type PaymentHandler struct {
	orders    OrderService
	lifecycle LifecycleService
	logger    *slog.Logger
}

// NewPaymentHandler creates the webhook handler.
func NewPaymentHandler(orders OrderService, lc LifecycleService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		orders:    orders,
		lifecycle: lc,
		logger:    logger.With(slog.String("handler", "payment")),
	}
}

// PaymentWebhookRequest is the provider's "payment succeeded" claim. The
// charge itself happened off-system; orderId is all the engine needs.
type PaymentWebhookRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// Bind implements render.Binder.
func (p *PaymentWebhookRequest) Bind(r *http.Request) error {
	return validate.Struct(p)
}

// PaidResponse reports the result of a paid transition (webhook or admin).
type PaidResponse struct {
	OK             bool   `json:"ok"`
	OrderID        string `json:"orderId"`
	Token          string `json:"token"`
	LicenseKey     string `json:"licenseKey"`
	ActivationsMax int    `json:"activationsMax"`
}

// HandleWebhook handles POST /api/webhook/payment. Idempotent: replaying a
// webhook reuses the license and mints a fresh token.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var req PaymentWebhookRequest
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

	h.logger.InfoContext(r.Context(), "payment webhook applied",
		slog.String("order_id", req.OrderID))

	render.JSON(w, r, PaidResponse{
		OK:             true,
		OrderID:        result.OrderID,
		Token:          result.Token,
		LicenseKey:     result.LicenseKey,
		ActivationsMax: result.ActivationsMax,
	})
}
