package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Str("path", c.Path()).Msg("http error")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCafeNotFound),
		errors.Is(err, domain.ErrRatingNotFound):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrProviderManaged),
		errors.Is(err, domain.ErrEmailUnverified),
		errors.Is(err, domain.ErrNotOrphaned):
		return http.StatusConflict, rootMessage(err)
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized, rootMessage(err)
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrResetTokenInvalid),
		errors.Is(err, domain.ErrUnknownEvent),
		errors.Is(err, domain.ErrConfirmationRequired):
		// These carry caller-facing detail ("invalid input: rating must be ...").
		return http.StatusBadRequest, clientMessage(err)
	case errors.Is(err, domain.ErrProviderDisabled):
		return http.StatusNotImplemented, rootMessage(err)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// rootMessage returns the innermost error text, dropping wrapping context.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// clientMessage strips operation prefixes added by fmt.Errorf("op: %w") so the
// message starts at the sentinel that describes the problem.
func clientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrInvalidInput,
		domain.ErrInvalidRole,
		domain.ErrResetTokenInvalid,
		domain.ErrUnknownEvent,
		domain.ErrConfirmationRequired,
	} {
		if i := strings.Index(msg, sentinel.Error()); i >= 0 {
			return msg[i:]
		}
	}
	return msg
}
