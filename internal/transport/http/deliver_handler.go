package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "valeshop/internal/errors"
	"valeshop/internal/infrastructure"
	"valeshop/internal/tokens"
)

// deliverNote accompanies every successful redemption.
const deliverNote = "Access granted. Keep this app in your library."

// DeliverHandler redeems delivery tokens for download links and the
// license key.
type DeliverHandler struct {
	tokens  TokenService
	metrics *infrastructure.EngineMetrics
	logger  *slog.Logger
}

// NewDeliverHandler creates a deliver handler. metrics may be nil.
func NewDeliverHandler(tok TokenService, metrics *infrastructure.EngineMetrics, logger *slog.Logger) *DeliverHandler {
	return &DeliverHandler{
		tokens:  tok,
		metrics: metrics,
		logger:  logger.With(slog.String("handler", "deliver")),
	}
}

// DeliverResponse is the delivery payload: product links, license key,
// activation cap and a human-readable note.
type DeliverResponse struct {
	ProductID      string `json:"productId"`
	ProductSlug    string `json:"productSlug"`
	ProductName    string `json:"productName"`
	Note           string `json:"note"`
	LicenseKey     string `json:"licenseKey"`
	ActivationsMax int    `json:"activationsMax"`
	AndroidURL     string `json:"android_url"`
	IOSLink        string `json:"ios_link"`
	WebLink        string `json:"web_link"`
}

// Redeem handles GET /api/deliver/{token}. Not single-use: within the
// token's window a page reload returns the same payload again.
func (h *DeliverHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		renderError(w, r, apierrors.ErrValidation("token", "token is required"))
		return
	}

	rec, err := h.tokens.Redeem(r.Context(), token)
	switch {
	case errors.Is(err, tokens.ErrExpired):
		renderError(w, r, apierrors.ErrTokenExpired)
		return
	case errors.Is(err, tokens.ErrNotFound):
		renderError(w, r, apierrors.ErrTokenNotFound)
		return
	case err != nil:
		renderError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.TokensRedeemed.Add(r.Context(), 1)
	}
	h.logger.InfoContext(r.Context(), "delivery payload served",
		slog.String("order_id", rec.OrderID))

	render.JSON(w, r, DeliverResponse{
		ProductID:      rec.ProductID,
		ProductSlug:    rec.Slug,
		ProductName:    rec.ProductName,
		Note:           deliverNote,
		LicenseKey:     rec.LicenseKey,
		ActivationsMax: rec.ActivationsMax,
		AndroidURL:     rec.AndroidURL,
		IOSLink:        rec.IOSLink,
		WebLink:        rec.WebLink,
	})
}
