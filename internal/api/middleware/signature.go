package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/api/metrics"
	"github.com/peaberry/peaberry-api/pkg/signature"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Firebase-Auth-Signature"

const maxWebhookBody = 1 << 20

// VerifySignature authenticates webhook deliveries against secret. The raw
// body is read once, verified byte for byte, and restored for the handler.
func VerifySignature(secret string, log zerolog.Logger) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, maxWebhookBody))
			if err != nil {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
			}

			if err := signature.Verify(key, body, req.Header.Get(SignatureHeader)); err != nil {
				reason := "mismatch"
				switch {
				case errors.Is(err, signature.ErrMissing):
					reason = "missing"
				case errors.Is(err, signature.ErrMalformed):
					reason = "malformed"
				}
				metrics.WebhookSignatureFailuresTotal.WithLabelValues(reason).Inc()
				log.Warn().
					Str("reason", reason).
					Str("remote_ip", c.RealIP()).
					Msg("webhook signature rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
			}

			req.Body = io.NopCloser(bytes.NewReader(body))
			return next(c)
		}
	}
}
