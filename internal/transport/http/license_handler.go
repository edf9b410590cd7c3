package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apierrors "valeshop/internal/errors"
	"valeshop/internal/infrastructure"
	"valeshop/internal/keygen"
	"valeshop/internal/licenses"
)

// LicenseHandler serves the public license surface used by installed
// applications: activation and validation. Device identity is an opaque
// client-supplied string; a recorded identifier occupies a slot forever
// unless the license is revoked.
type LicenseHandler struct {
	licenses LicenseService
	metrics  *infrastructure.EngineMetrics
	logger   *slog.Logger
}

// NewLicenseHandler creates a license handler. metrics may be nil.
func NewLicenseHandler(lic LicenseService, metrics *infrastructure.EngineMetrics, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		licenses: lic,
		metrics:  metrics,
		logger:   logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the public license routes, mounted under /api/license.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/activate", h.Activate)
	r.Post("/validate", h.Validate)
	return r
}

// LicenseDeviceRequest is the payload for both activate and validate.
type LicenseDeviceRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	DeviceID   string `json:"deviceId" validate:"required"`
}

// Bind implements render.Binder, normalizing the key and the device ID the
// way clients send them. A device ID with stray whitespace must map to the
// same activation slot as the bare one.
func (l *LicenseDeviceRequest) Bind(r *http.Request) error {
	l.LicenseKey = keygen.Normalize(l.LicenseKey)
	l.DeviceID = strings.TrimSpace(l.DeviceID)
	if err := validate.Struct(l); err != nil {
		return errors.New("licenseKey and deviceId are required")
	}
	return nil
}

// ActivationResponse reports an activation outcome with remaining slots.
type ActivationResponse struct {
	OK              bool   `json:"ok"`
	Status          string `json:"status"`
	ActivationsLeft int    `json:"activationsLeft"`
}

// ValidationResponse answers a validate call. Counts are present for every
// known license so clients can render slots remaining before activating.
type ValidationResponse struct {
	OK              bool   `json:"ok"`
	Valid           bool   `json:"valid"`
	Reason          string `json:"reason,omitempty"`
	ActivationsMax  int    `json:"activationsMax"`
	ActivationsUsed int    `json:"activationsUsed"`
}

// Activate handles POST /api/license/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req LicenseDeviceRequest
	if err := render.Bind(r, &req); err != nil {
		renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.licenses.Activate(r.Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		h.recordActivation(r, outcomeForError(err))
		switch {
		case errors.Is(err, licenses.ErrNotFound):
			renderError(w, r, apierrors.ErrLicenseNotFound)
		case errors.Is(err, licenses.ErrRevoked):
			renderError(w, r, apierrors.ErrLicenseRevoked)
		case errors.Is(err, licenses.ErrLimitReached):
			renderError(w, r, apierrors.ErrActivationLimit.WithDetails(
				map[string]int{"activationsLeft": 0}))
		default:
			renderError(w, r, err)
		}
		return
	}

	h.recordActivation(r, string(result.Status))
	h.logger.InfoContext(r.Context(), "license activation handled",
		slog.String("status", string(result.Status)),
		slog.Int("activations_left", result.ActivationsLeft))

	render.JSON(w, r, ActivationResponse{
		OK:              true,
		Status:          string(result.Status),
		ActivationsLeft: result.ActivationsLeft,
	})
}

// Validate handles POST /api/license/validate. Always a 200: invalidity is
// data, not an error.
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req LicenseDeviceRequest
	if err := render.Bind(r, &req); err != nil {
		renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.licenses.Validate(r.Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, ValidationResponse{
		OK:              result.Valid,
		Valid:           result.Valid,
		Reason:          result.Reason,
		ActivationsMax:  result.ActivationsMax,
		ActivationsUsed: result.ActivationsUsed,
	})
}

func (h *LicenseHandler) recordActivation(r *http.Request, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.Activations.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, licenses.ErrNotFound):
		return "not_found"
	case errors.Is(err, licenses.ErrRevoked):
		return "revoked"
	case errors.Is(err, licenses.ErrLimitReached):
		return "limit_reached"
	default:
		return "error"
	}
}
