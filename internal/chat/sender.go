package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSender delivers replies by POSTing them to the transport gateway's
// send endpoint.
type HTTPSender struct {
	url    string
	client *http.Client
}

// NewHTTPSender creates a sender for the given gateway URL.
func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one reply to the gateway.
func (s *HTTPSender) Send(ctx context.Context, reply Reply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("transport gateway returned status %d", resp.StatusCode)
	}
	return nil
}
