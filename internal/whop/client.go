package whop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parrotlabs/voiceforge/internal/config"
)

// Client calls the Whop payments API. Request and response shapes are fixed by
// the provider contract.
type Client struct {
	apiKey     string
	appID      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// ChargeMetadata is echoed back in the payment webhook and lets the
// reconciler recover the package and user a charge belongs to.
type ChargeMetadata struct {
	PackageID    string `json:"packageId"`
	ExperienceID string `json:"experienceId"`
	AppUserID    string `json:"appUserId"`
}

// InAppPurchase is the purchase handle the client needs to open the payment
// modal.
type InAppPurchase struct {
	ID     string `json:"id"`
	PlanID string `json:"planId"`
}

type chargeRequest struct {
	Amount   float64        `json:"amount"`
	Currency string         `json:"currency"`
	UserID   string         `json:"user_id"`
	Metadata ChargeMetadata `json:"metadata"`
}

type chargeResponse struct {
	InAppPurchase *InAppPurchase `json:"inAppPurchase"`
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.WhopAPIKey,
		appID:   cfg.WhopAppID,
		baseURL: strings.TrimRight(cfg.WhopAPIBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// ChargeUser creates a provider-side charge and returns the in-app purchase
// handle. amountCents is the server-trusted package price.
func (c *Client) ChargeUser(ctx context.Context, whopUserID string, amountCents int, metadata ChargeMetadata) (*InAppPurchase, error) {
	payload := chargeRequest{
		Amount:   float64(amountCents) / 100,
		Currency: "usd",
		UserID:   whopUserID,
		Metadata: metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal charge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v5/app/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-whop-app-id", c.appID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read charge response: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.log.Error("whop charge failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return nil, fmt.Errorf("whop error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var parsed chargeResponse
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}
	if parsed.InAppPurchase == nil || parsed.InAppPurchase.ID == "" {
		return nil, fmt.Errorf("charge response missing inAppPurchase")
	}
	return parsed.InAppPurchase, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
