// Package http is the transport layer: request decoding, validation,
// response shaping. All business rules live in the repositories and the
// lifecycle orchestrator; handlers only translate.
package http

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "valeshop/internal/errors"
)

var validate = validator.New()

// URLBuilder turns stored identifiers into the customer-facing links the
// storefront pages expect.
type URLBuilder struct {
	Origin      string
	OrderPath   string
	DeliverPath string
}

// OrderURL returns the order status page link for an order.
func (b URLBuilder) OrderURL(orderID string) string {
	return b.Origin + b.OrderPath + "?id=" + url.QueryEscape(orderID)
}

// DeliverURL returns the delivery page link for a token.
func (b URLBuilder) DeliverURL(token string) string {
	return b.Origin + b.DeliverPath + "?token=" + url.QueryEscape(token)
}

// renderError writes an APIError; anything else is wrapped as a 500.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierrors.APIError
	if e, ok := err.(*apierrors.APIError); ok {
		apiErr = e
	} else {
		apiErr = apierrors.InternalError(err)
	}
	render.Render(w, r, apiErr)
}

// clampLimit parses a page-size query parameter into [1, 200], default 50.
func clampLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 50
	}
	if n < 1 {
		return 1
	}
	if n > 200 {
		return 200
	}
	return n
}

// timeString renders a timestamp as RFC 3339, or "" for the zero value so
// unpaid orders show an empty expiry like the stored record does.
func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// NotFoundHandler is the JSON catch-all for unknown routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, apierrors.ErrNotFound)
}
