// Package store implements the client for the App Store purchase
// bridge. Purchases and entitlement reads both resolve to verified
// transactions; the subscription ledger owns everything downstream of
// a transaction, so this client only fetches and maps.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/pkg/circuitbreaker"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/retry"
)

// ClientConfig contains configuration for the purchase bridge client.
type ClientConfig struct {
	// BaseURL of the purchase bridge.
	BaseURL string

	// APIKey authenticates against the bridge, empty to skip auth.
	APIKey string

	// Timeout is the per-request HTTP timeout. Purchase requests wait
	// on user interaction, so the default is generous.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Minute,
	}
}

// Client talks to the purchase bridge. Entitlement reads run behind a
// retrier and circuit breaker; purchase requests do not retry, because
// replaying a purchase the user already confirmed risks a double
// charge sheet even when the response was lost.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	log        *logger.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a purchase bridge client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}

	log := config.Logger.WithComponent("store_client")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        log,
		retrier:    retry.StoreAPIRetrier(),
		breaker: circuitbreaker.StoreAPIBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	}
}

// transactionDTO is the bridge's verified transaction payload. Dates
// are millisecond epochs, matching the App Store Server API.
type transactionDTO struct {
	TransactionID    string `json:"transaction_id"`
	ProductID        string `json:"product_id"`
	PurchaseDateMs   int64  `json:"purchase_date_ms"`
	RevocationDateMs *int64 `json:"revocation_date_ms,omitempty"`
}

func (d transactionDTO) toTransaction() subscription.Transaction {
	txn := subscription.Transaction{
		ID:           d.TransactionID,
		ProductID:    d.ProductID,
		PurchaseDate: time.UnixMilli(d.PurchaseDateMs),
	}
	if d.RevocationDateMs != nil {
		revoked := time.UnixMilli(*d.RevocationDateMs)
		txn.RevocationDate = &revoked
	}
	return txn
}

// Purchase runs the store purchase flow for productID and returns the
// verified transaction. A user-dismissed purchase sheet surfaces as
// shared.ErrPurchaseCancelled with no transaction.
func (c *Client) Purchase(ctx context.Context, productID string) (subscription.Transaction, error) {
	payload, err := json.Marshal(map[string]string{"product_id": productID})
	if err != nil {
		return subscription.Transaction{}, fmt.Errorf("marshal purchase request: %w", err)
	}

	var response struct {
		Status      string          `json:"status"`
		Transaction *transactionDTO `json:"transaction,omitempty"`
	}
	if err := c.doSingleRequest(ctx, http.MethodPost, "/v1/purchase", payload, &response); err != nil {
		return subscription.Transaction{}, fmt.Errorf("purchase %s: %w", productID, err)
	}

	switch response.Status {
	case "completed":
		if response.Transaction == nil {
			return subscription.Transaction{}, shared.NewDomainError(
				"store", "Purchase", shared.ErrInvalidEntity, "completed purchase carried no transaction")
		}
		return response.Transaction.toTransaction(), nil
	case "cancelled":
		return subscription.Transaction{}, shared.ErrPurchaseCancelled
	default:
		return subscription.Transaction{}, shared.NewDomainError(
			"store", "Purchase", shared.ErrExternalService,
			fmt.Sprintf("purchase failed with status %q", response.Status))
	}
}

// CurrentEntitlements returns every verified transaction for productID
// currently on the account, revoked ones included. The restore flow
// and the periodic revocation check both replay this list through the
// subscription ledger.
func (c *Client) CurrentEntitlements(ctx context.Context, productID string) ([]subscription.Transaction, error) {
	path := "/v1/entitlements?product_id=" + url.QueryEscape(productID)

	var response struct {
		Transactions []transactionDTO `json:"transactions"`
	}
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			err := c.doSingleRequest(ctx, http.MethodGet, path, nil, &response)
			if err == nil {
				return nil
			}
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("current entitlements: %w", err)
	}

	transactions := make([]subscription.Transaction, 0, len(response.Transactions))
	for _, dto := range response.Transactions {
		transactions = append(transactions, dto.toTransaction())
	}
	return transactions, nil
}

// doSingleRequest performs one request against the bridge.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body []byte, result interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("store", "Request", shared.ErrServiceUnavailable, "bridge unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return shared.ErrStoreAPIRateLimited
	case resp.StatusCode >= 500:
		return shared.NewDomainError("store", "Request", shared.ErrServiceUnavailable,
			fmt.Sprintf("bridge error: status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("bridge request rejected: status %d", resp.StatusCode)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
