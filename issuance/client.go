// Package issuance talks to the asset-issuance (Phosphor) admin and public APIs.
package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIKeyHeader carries the per-frame credential.
const APIKeyHeader = "Phosphor-Api-Key"

// ErrAuthorization is returned when the service answers 401 or 403.
var ErrAuthorization = errors.New("issuance authorization failed")

// APIError is a business error reported by the service.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("issuance %s failed (status %d): %s", e.Op, e.Status, e.Detail)
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	PublicURL      string
	FallbackAPIKey string
	Timeout        time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	admin       *resty.Client
	public      *resty.Client
	fallbackKey string
}

func New(opts Options) *Client {
	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		admin: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		public: resty.New().
			SetBaseURL(publicURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		fallbackKey: opts.FallbackAPIKey,
	}
}

func (c *Client) request(ctx context.Context, apiKey string) *resty.Request {
	if apiKey == "" {
		apiKey = c.fallbackKey
	}
	return c.admin.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(APIKeyHeader, apiKey)
}

// decode checks status and error payload, then unmarshals the body into out.
func decode(op string, resp *resty.Response, err error, out interface{}) error {
	if err != nil {
		return fmt.Errorf("issuance %s: %w", op, err)
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s: you are not authorized to access the API", ErrAuthorization, op)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s: you do not have access to this resource", ErrAuthorization, op)
	}

	var envelope errorEnvelope
	if jsonErr := json.Unmarshal(resp.Body(), &envelope); jsonErr == nil && envelope.Error != nil {
		detail := envelope.Error.Detail
		if detail == "" {
			detail = envelope.Error.Title
		}
		return &APIError{Op: op, Status: resp.StatusCode(), Detail: detail}
	}
	if resp.IsError() {
		return &APIError{Op: op, Status: resp.StatusCode(), Detail: resp.String()}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("issuance %s: invalid response: %w", op, err)
	}
	return nil
}

// CreateItem creates an item in a collection.
func (c *Client) CreateItem(ctx context.Context, apiKey string, req CreateItemRequest) (*Item, error) {
	var item Item
	resp, err := c.request(ctx, apiKey).SetBody(req).Post("/v1/items")
	if err := decode("create item", resp, err, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// LockItem caps an item's supply, making it mintable.
func (c *Client) LockItem(ctx context.Context, apiKey, itemID string, maxSupply int) (*Item, error) {
	var item Item
	resp, err := c.request(ctx, apiKey).
		SetBody(lockItemRequest{ItemID: itemID, MaxSupply: Quantity(maxSupply)}).
		Post("/v1/items/lock")
	if err := decode("lock item", resp, err, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateMintRequest asks the service to mint an item to an address.
func (c *Client) CreateMintRequest(ctx context.Context, apiKey string, req MintRequest) (*MintResponse, error) {
	var out MintResponse
	resp, err := c.request(ctx, apiKey).SetBody(req).Post("/v1/mint-requests")
	if err := decode("mint", resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransaction(ctx context.Context, apiKey, transactionID string) (*Transaction, error) {
	var tx Transaction
	resp, err := c.request(ctx, apiKey).
		SetPathParam("id", transactionID).
		Get("/v1/transactions/{id}")
	if err := decode("get transaction", resp, err, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) GetItem(ctx context.Context, apiKey, itemID string) (*Item, error) {
	var item Item
	resp, err := c.request(ctx, apiKey).
		SetPathParam("id", itemID).
		Get("/v1/items/{id}")
	if err := decode("get item", resp, err, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListOwners fetches one page of holders through the unauthenticated public
// API. An empty cursor requests the first page.
func (c *Client) ListOwners(ctx context.Context, itemID, cursor string) (*OwnersPage, error) {
	req := c.public.R().
		SetContext(ctx).
		SetHeader(APIKeyHeader, "").
		SetPathParam("id", itemID)
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}
	var page OwnersPage
	resp, err := req.Get("/v1/items/{id}/owners")
	if err := decode("list owners", resp, err, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
