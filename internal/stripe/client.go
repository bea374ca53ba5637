package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrLookupDisabled is returned when no API key is configured and a
// session lookup is requested.
var ErrLookupDisabled = errors.New("stripe session lookup disabled")

// Client retrieves detail from the Stripe API that webhook payloads omit:
// session metadata as the last-resort booking resolution step, and the
// payment intent's charge for the receipt URL.
type Client interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
}

// APIClient is an HTTP implementation of Client against the Stripe REST API.
type APIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a Stripe API client.
func NewAPIClient(apiKey string) *APIClient {
	return &APIClient{
		apiKey:  apiKey,
		baseURL: "https://api.stripe.com/v1",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetCheckoutSession retrieves a checkout session by ID.
func (c *APIClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.get(ctx, "/checkout/sessions/"+sessionID, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetPaymentIntent retrieves a payment intent by ID, including its charges.
func (c *APIClient) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.get(ctx, "/payment_intents/"+intentID, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stripe: get %s: status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// DisabledClient is used when no Stripe API key is configured. Lookups
// fail softly; the caller treats the event as unresolvable.
type DisabledClient struct{}

// GetCheckoutSession always reports that lookups are disabled.
func (DisabledClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	return nil, ErrLookupDisabled
}

// GetPaymentIntent always reports that lookups are disabled.
func (DisabledClient) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	return nil, ErrLookupDisabled
}

// Ensure implementations satisfy Client.
var (
	_ Client = (*APIClient)(nil)
	_ Client = DisabledClient{}
)
