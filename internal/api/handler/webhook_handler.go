package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/api/metrics"
	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// WebhookHandler receives identity lifecycle events. Deliveries reach it only
// after the signature middleware has authenticated the raw body.
type WebhookHandler struct {
	service ports.WebhookService
	log     zerolog.Logger
}

func NewWebhookHandler(service ports.WebhookService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// FirebaseAuth applies a user.create, password.update or user.delete event.
//
// @Summary      Firebase Authentication webhook
// @Description  A 200 acknowledges the delivery, including no-ops and duplicates. Any 5xx leaves it for the sender to retry.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Firebase-Auth-Signature  header    string          true  "hex HMAC-SHA256 of the raw body"
// @Param        body                       body      webhookRequest  true  "Lifecycle event"
// @Success      200  {object}  webhookResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/webhooks/firebase-auth [post]
func (h *WebhookHandler) FirebaseAuth(c echo.Context) error {
	var req webhookRequest
	if err := c.Bind(&req); err != nil {
		metrics.WebhookErrorsTotal.WithLabelValues("malformed").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "malformed webhook body")
	}
	if err := c.Validate(&req); err != nil {
		metrics.WebhookErrorsTotal.WithLabelValues("malformed").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	evt := req.toEvent()
	outcome, err := h.service.Apply(c.Request().Context(), evt)
	if err != nil {
		reason := "store"
		switch {
		case errors.Is(err, domain.ErrUnknownEvent):
			reason = "unknown_event"
		case errors.Is(err, domain.ErrInvalidInput):
			reason = "malformed"
		}
		metrics.WebhookErrorsTotal.WithLabelValues(reason).Inc()
		if reason != "store" {
			h.log.Warn().Err(err).Str("event", req.Event).Str("uid", evt.UID).Msg("webhook rejected")
		}
		return err
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(evt.Kind), string(outcome)).Inc()
	return c.JSON(http.StatusOK, webhookResponse{Status: "ok", Outcome: string(outcome)})
}
