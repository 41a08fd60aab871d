package apns

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

const (
	hostProduction = "https://api.push.apple.com"
	hostSandbox    = "https://api.sandbox.push.apple.com"

	// .voip suffix is mandatory for PushKit topics.
	topicSuffix = ".voip"
)

var (
	tokenHexRe = regexp.MustCompile(`^[0-9a-fA-F]{64,512}$`)
	bundleRe   = regexp.MustCompile(`^[A-Za-z0-9.\-]+$`)
)

// Config carries the provider-token credentials for the VoIP channel.
type Config struct {
	KeyPath string // PEM-encoded .p8 private key
	TeamID  string
	KeyID   string
	Bundle  string // default bundle id, overridable per device
	Sandbox bool   // default environment when the device stores none
}

// Client delivers VoIP silent pushes. The provider token is re-signed on
// every send; call volume is low enough that caching buys nothing.
type Client struct {
	cfg  Config
	key  *ecdsa.PrivateKey
	hc   *http.Client
	prod string
	sand string
}

// New loads and parses the signing key up front so a misconfigured
// deployment fails at startup, not on the first call.
func New(cfg Config) (*Client, error) {
	pem, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read apns key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse apns key: %w", err)
	}
	return &Client{
		cfg:  cfg,
		key:  key,
		hc:   &http.Client{Timeout: 10 * time.Second},
		prod: hostProduction,
		sand: hostSandbox,
	}, nil
}

func (c *Client) Push(ctx context.Context, target domain.VoipTarget, data map[string]any) error {
	if !tokenHexRe.MatchString(target.Token) {
		return fmt.Errorf("invalid voip device token")
	}

	sandbox := c.cfg.Sandbox
	switch target.Env {
	case "sandbox":
		sandbox = true
	case "prod":
		sandbox = false
	}
	host := c.prod
	if sandbox {
		host = c.sand
	}

	bearer, err := c.providerToken()
	if err != nil {
		return fmt.Errorf("sign provider token: %w", err)
	}

	bundle := c.cfg.Bundle
	if target.Bundle != "" && bundleRe.MatchString(target.Bundle) {
		bundle = target.Bundle
	}

	body, err := json.Marshal(map[string]any{
		"aps":  map[string]any{"content-available": 1},
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("marshal voip payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		host+"/3/device/"+target.Token, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build voip request: %w", err)
	}
	req.Header.Set("authorization", "bearer "+bearer)
	req.Header.Set("apns-topic", bundle+topicSuffix)
	req.Header.Set("apns-push-type", "voip")
	req.Header.Set("apns-priority", "10")
	req.Header.Set("content-type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send voip push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("apns responded %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

// providerToken signs a fresh ES256 token asserting issuer, key id and
// issued-at, as the APNs provider API requires.
func (c *Client) providerToken() (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.cfg.TeamID,
		"iat": time.Now().Unix(),
	})
	tok.Header["kid"] = c.cfg.KeyID
	return tok.SignedString(c.key)
}
