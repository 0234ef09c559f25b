// Package identity resolves Farcaster ids to profiles through the Neynar API.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Profile is the subset of a Farcaster user the service needs.
type Profile struct {
	Fid               int64             `json:"fid"`
	Username          string            `json:"username"`
	DisplayName       string            `json:"display_name"`
	PfpURL            string            `json:"pfp_url"`
	CustodyAddress    string            `json:"custody_address"`
	VerifiedAddresses VerifiedAddresses `json:"verified_addresses"`
}

type VerifiedAddresses struct {
	EthAddresses []string `json:"eth_addresses"`
}

// FidString returns the fid in its decimal form.
func (p *Profile) FidString() string {
	return strconv.FormatInt(p.Fid, 10)
}

// Addresses lists the custody address followed by verified addresses, without
// blanks or duplicates.
func (p *Profile) Addresses() []string {
	if p == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, a := range append([]string{p.CustodyAddress}, p.VerifiedAddresses.EthAddresses...) {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("Api_key", opts.APIKey),
	}
}

type bulkUsersResponse struct {
	Users []Profile `json:"users"`
}

// ResolveUser returns the profile for fid, or nil when the service knows no
// such user.
func (c *Client) ResolveUser(ctx context.Context, fid string) (*Profile, error) {
	if fid == "" {
		return nil, nil
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("fids", fid).
		Get("/v2/farcaster/user/bulk")
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", fid, err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("resolve user %s: status %d: %s", fid, resp.StatusCode(), resp.String())
	}

	var users bulkUsersResponse
	if err := json.Unmarshal(resp.Body(), &users); err != nil {
		return nil, fmt.Errorf("resolve user %s: invalid response: %w", fid, err)
	}
	if len(users.Users) == 0 {
		return nil, nil
	}
	return &users.Users[0], nil
}

// ErrInvalidFrameMessage is returned when a signed frame message is missing or
// does not validate.
var ErrInvalidFrameMessage = errors.New("invalid frame message")

// FrameAction is the validated content of a signed frame message.
type FrameAction struct {
	Interactor   Profile      `json:"interactor"`
	TappedButton TappedButton `json:"tapped_button"`
	Input        FrameInput   `json:"input"`
	URL          string       `json:"url"`
}

type TappedButton struct {
	Index int `json:"index"`
}

type FrameInput struct {
	Text string `json:"text"`
}

type validateFrameRequest struct {
	MessageBytesInHex string `json:"message_bytes_in_hex"`
}

type validateFrameResponse struct {
	Valid  bool        `json:"valid"`
	Action FrameAction `json:"action"`
}

// ValidateFrameAction checks a frame message signature with the hub and
// returns the action it carries. messageBytes is the hex encoded
// trustedData.messageBytes of the frame POST.
func (c *Client) ValidateFrameAction(ctx context.Context, messageBytes string) (*FrameAction, error) {
	messageBytes = strings.TrimPrefix(strings.TrimSpace(messageBytes), "0x")
	if messageBytes == "" {
		return nil, fmt.Errorf("empty message bytes: %w", ErrInvalidFrameMessage)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(validateFrameRequest{MessageBytesInHex: messageBytes}).
		Post("/v2/farcaster/frame/validate")
	if err != nil {
		return nil, fmt.Errorf("validate frame action: %w", err)
	}
	if resp.StatusCode() == 400 {
		return nil, fmt.Errorf("validate frame action: %s: %w", resp.String(), ErrInvalidFrameMessage)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("validate frame action: status %d: %s", resp.StatusCode(), resp.String())
	}

	var out validateFrameResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("validate frame action: invalid response: %w", err)
	}
	if !out.Valid || out.Action.Interactor.Fid == 0 {
		return nil, fmt.Errorf("validate frame action: %w", ErrInvalidFrameMessage)
	}
	return &out.Action, nil
}
