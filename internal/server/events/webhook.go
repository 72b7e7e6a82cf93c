package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"hostexposer/internal/version"

	"github.com/google/uuid"
)

// Webhook request headers
const (
	HeaderEvent     = "X-Exposer-Event"
	HeaderDelivery  = "X-Exposer-Delivery"
	HeaderSignature = "X-Exposer-Signature"
)

type webhookPublisher struct {
	url     string
	secret  []byte
	headers map[string]string
	client  *http.Client
}

func newWebhookPublisher(cfg WebhookConfig, timeout time.Duration) (*webhookPublisher, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("webhook url must be an absolute http(s) URL: %q", cfg.URL)
	}

	return &webhookPublisher{
		url:     cfg.URL,
		secret:  []byte(cfg.Secret),
		headers: cfg.Headers,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
	}, nil
}

func (p *webhookPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent("webhook"))
	req.Header.Set(HeaderEvent, string(e.Type))
	req.Header.Set(HeaderDelivery, uuid.New().String())
	if len(p.secret) > 0 {
		req.Header.Set(HeaderSignature, Sign(data, p.secret))
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *webhookPublisher) Close() error {
	if t, ok := p.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body, prefixed with the algorithm
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
