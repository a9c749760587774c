package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

type webhookRequest struct {
	Event string      `json:"event" validate:"required"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	Timestamp   eventTime `json:"timestamp" swaggertype:"string"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	ProviderID  string    `json:"providerId"`
}

type webhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
}

func (r *webhookRequest) toEvent() domain.WebhookEvent {
	return domain.WebhookEvent{
		Kind:        domain.WebhookEventKind(r.Event),
		UID:         r.Data.UID,
		Email:       r.Data.Email,
		DisplayName: r.Data.DisplayName,
		PhotoURL:    r.Data.PhotoURL,
		ProviderID:  r.Data.ProviderID,
		Timestamp:   time.Time(r.Data.Timestamp),
	}
}

// eventTime accepts an RFC 3339 string or epoch milliseconds. null and ""
// decode to the zero time.
type eventTime time.Time

func (t *eventTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = eventTime{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*t = eventTime{}
			return nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			*t = eventTime(ts.UTC())
			return nil
		}
		// Some emitters quote the epoch value.
		b = []byte(s)
	}

	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp: expected RFC 3339 or epoch milliseconds, got %s", b)
	}
	*t = eventTime(time.UnixMilli(ms).UTC())
	return nil
}
