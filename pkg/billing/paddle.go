package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`

	// CheckoutPricesURL is the checkout price endpoint used for per-IP
	// localized price lookups. It is separate from the main API surface.
	CheckoutPricesURL string `env:"PADDLE_CHECKOUT_PRICES_URL" envDefault:"https://checkout.paddle.com/api/2.0/prices"`

	HTTPTimeout time.Duration `env:"PADDLE_HTTP_TIMEOUT" envDefault:"10s"`
}

// PaddleProvider implements PriceLookup and WebhookParser against Paddle.
type PaddleProvider struct {
	client     *paddle.SDK
	verifier   *paddle.WebhookVerifier
	httpClient *http.Client
	config     PaddleConfig
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 10 * time.Second
	}

	return &PaddleProvider{
		client:     client,
		verifier:   paddle.NewWebhookVerifier(config.WebhookSecret),
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
		config:     config,
	}, nil
}

// LookupPrice fetches the localized price of a product from the checkout
// price endpoint. The customer IP determines tax region and currency.
func (p *PaddleProvider) LookupPrice(ctx context.Context, productID, customerIP string) (Money, error) {
	if productID == "" {
		return Money{}, fmt.Errorf("%w: product id is required", ErrPriceLookupFailed)
	}

	q := url.Values{}
	q.Set("product_ids", productID)
	if customerIP != "" {
		q.Set("customer_ip", customerIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.CheckoutPricesURL+"?"+q.Encode(), nil)
	if err != nil {
		return Money{}, errors.Join(ErrPriceLookupFailed, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Money{}, errors.Join(ErrPriceLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Money{}, fmt.Errorf("%w: unexpected status %d", ErrPriceLookupFailed, resp.StatusCode)
	}

	var body struct {
		Success  bool `json:"success"`
		Response struct {
			Products []struct {
				ProductID json.Number `json:"product_id"`
				Currency  string      `json:"currency"`
				Price     struct {
					Net float64 `json:"net"`
				} `json:"price"`
			} `json:"products"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Money{}, errors.Join(ErrPriceLookupFailed, err)
	}
	if !body.Success || len(body.Response.Products) == 0 {
		return Money{}, fmt.Errorf("%w: no price returned for product %s", ErrPriceLookupFailed, productID)
	}

	product := body.Response.Products[0]
	return Money{
		Amount:   int64(math.Round(product.Price.Net * 100)),
		Currency: product.Currency,
	}, nil
}

// ParseWebhook validates the payload signature and normalizes the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	// The SDK verifier works on http.Request, so wrap the raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var paddleEvent struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event := &WebhookEvent{
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Raw:           paddleEvent.Data,
	}

	if id, ok := paddleEvent.Data["id"].(string); ok {
		event.SubscriptionID = id
	}
	if subID, ok := paddleEvent.Data["subscription_id"].(string); ok {
		// Transaction events reference their subscription separately.
		event.SubscriptionID = subID
	}
	if status, ok := paddleEvent.Data["status"].(string); ok {
		event.Status = status
	}
	if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		if userID, ok := customData["user_id"].(string); ok {
			event.UserID = userID
		}
	}
	if next, ok := paddleEvent.Data["next_billed_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, next); err == nil {
			event.NextBillDate = t
		}
	}
	if items, ok := paddleEvent.Data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if price, ok := item["price"].(map[string]any); ok {
				if priceID, ok := price["id"].(string); ok {
					event.PlanID = priceID
				}
			}
			if priceID, ok := item["price_id"].(string); ok {
				event.PlanID = priceID
			}
		}
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event types to internal EventType.
func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "subscription.created":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "transaction.payment_succeeded", "transaction.completed":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		// Unmapped events pass through under their provider name.
		return EventType(paddleEvent)
	}
}
