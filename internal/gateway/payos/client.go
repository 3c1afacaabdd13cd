package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bookpay/internal/gateway"
)

// CodeSuccess is the gateway's success code in every response envelope.
const CodeSuccess = "00"

const defaultTimeout = 10 * time.Second

// Config holds the PayOS merchant credentials and endpoint.
type Config struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	Endpoint    string
	Timeout     time.Duration
}

// Transaction is the gateway's record of one payment, used by
// reconciliation as the external source of truth.
type Transaction struct {
	ID         string `json:"id"`
	OrderCode  int64  `json:"orderCode"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amountPaid"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

type envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// Client is a signed HTTP client for the PayOS merchant API.
type Client struct {
	config Config
	http   *http.Client
}

func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// Refund asks the gateway to return funds to the customer. The request
// is keyed by order code and amount, so resubmitting the same refund
// is safe on the gateway side.
func (c *Client) Refund(ctx context.Context, orderCode int64, amount int64, reason string) error {
	signature := Sign(map[string]string{
		"orderCode": strconv.FormatInt(orderCode, 10),
		"amount":    strconv.FormatInt(amount, 10),
		"reason":    reason,
	}, c.config.ChecksumKey)

	payload := map[string]interface{}{
		"orderCode": orderCode,
		"amount":    amount,
		"reason":    reason,
		"signature": signature,
	}

	path := fmt.Sprintf("/v2/payment-requests/%d/refunds", orderCode)
	_, err := c.post(ctx, path, payload)
	return err
}

// GetTransaction looks up the gateway's record for an order code.
func (c *Client) GetTransaction(ctx context.Context, orderCode int64) (*Transaction, error) {
	path := fmt.Sprintf("/v2/payment-requests/%d", orderCode)
	env, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("payos: decode transaction: %w", err)
	}
	return &tx, nil
}

// CancelPayment cancels a pending payment link.
func (c *Client) CancelPayment(ctx context.Context, orderCode int64, reason string) error {
	payload := map[string]interface{}{}
	if reason != "" {
		payload["cancellationReason"] = reason
	}

	path := fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode)
	_, err := c.post(ctx, path, payload)
	return err
}

// ValidateAccount resolves the registered holder name for a bank
// account through the gateway's account directory.
func (c *Client) ValidateAccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	payload := map[string]interface{}{
		"accountNumber": accountNumber,
		"bankCode":      bankCode,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("payos: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/v2/payment/validate-account", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.config.ClientID)
	req.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("payos: %w", err)
	}
	defer resp.Body.Close()

	// This endpoint does not use the code/desc envelope.
	var result struct {
		Success           bool   `json:"success"`
		AccountHolderName string `json:"accountHolderName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("payos: decode response: %w", err)
	}
	if !result.Success {
		return "", &gateway.RejectedError{Provider: "payos", Code: "account_not_found", Desc: "account validation failed"}
	}
	return result.AccountHolderName, nil
}

// VerifyWebhook checks the signature PayOS sent with a webhook body.
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	return VerifySignature(body, signature, c.config.ChecksumKey)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payos: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

func (c *Client) send(req *http.Request) (*envelope, error) {
	req.Header.Set("x-client-id", c.config.ClientID)
	req.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payos: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("payos: decode response: %w", err)
	}

	if env.Code != CodeSuccess {
		return nil, &gateway.RejectedError{Provider: "payos", Code: env.Code, Desc: env.Desc}
	}
	return &env, nil
}
