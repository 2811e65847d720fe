package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink POSTs each event's JSON encoding to URL.
type WebhookSink struct {
	URL          string
	Client       *http.Client
	ignoreErrors bool
	name         string
}

// NewWebhookSink creates a WebhookSink with a 10 second client timeout.
func NewWebhookSink(name, url string, ignoreErrors bool) *WebhookSink {
	return &WebhookSink{
		URL:          url,
		Client:       &http.Client{Timeout: 10 * time.Second},
		ignoreErrors: ignoreErrors,
		name:         name,
	}
}

func (s *WebhookSink) Deliver(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}

	resp, err := s.Client.Post(s.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("audit: webhook sink %q: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("audit: webhook sink %q: unexpected status %d", s.name, resp.StatusCode)
	}
	return nil
}

func (s *WebhookSink) IgnoreErrors() bool { return s.ignoreErrors }
func (s *WebhookSink) Name() string       { return s.name }
