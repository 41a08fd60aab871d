package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Client sends data-only messages over the FCM legacy HTTP API. Delivery is
// best-effort; the caller decides what to do with a failure.
type Client struct {
	serverKey string
	endpoint  string
	hc        *http.Client
}

func New(serverKey string) *Client {
	return &Client{
		serverKey: serverKey,
		endpoint:  defaultEndpoint,
		hc:        &http.Client{Timeout: 8 * time.Second},
	}
}

type message struct {
	To       string            `json:"to"`
	Priority string            `json:"priority"`
	Data     map[string]string `json:"data"`
}

func (c *Client) Push(ctx context.Context, token string, data map[string]string) error {
	body, err := json.Marshal(message{To: token, Priority: "high", Data: data})
	if err != nil {
		return fmt.Errorf("marshal fcm message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send fcm message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("fcm responded %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
