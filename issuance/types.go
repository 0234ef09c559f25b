package issuance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Quantity is an item count. The service sends quantities both as JSON
// numbers and as decimal strings; it is always written back as a string.
type Quantity int64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*q = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	*q = Quantity(n)
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(q), 10))
}

// ItemAttributes are the display attributes of an issuance item.
type ItemAttributes struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Fid         string `json:"fid,omitempty"`
	Username    string `json:"username,omitempty"`
}

// CreateItemRequest is the body of POST /v1/items.
type CreateItemRequest struct {
	CollectionID string         `json:"collection_id"`
	Attributes   ItemAttributes `json:"attributes"`
}

type lockItemRequest struct {
	ItemID    string   `json:"item_id"`
	MaxSupply Quantity `json:"max_supply"`
}

// Item is an issuance item as returned by the service.
type Item struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collection_id"`
	Locked       bool           `json:"locked"`
	MaxSupply    *Quantity      `json:"max_supply,omitempty"`
	Attributes   ItemAttributes `json:"attributes"`
}

// MintRequest is the body of POST /v1/mint-requests.
type MintRequest struct {
	ItemID    string   `json:"item_id"`
	ToAddress string   `json:"to_address"`
	Quantity  Quantity `json:"quantity"`
}

// MintResponse lists the mint requests the service created.
type MintResponse struct {
	MintRequests []CreatedMintRequest `json:"mint_requests"`
}

type CreatedMintRequest struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
}

// Transaction is the on-chain transaction behind a mint request.
type Transaction struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	TxHash  string `json:"tx_hash"`
	ChainID int64  `json:"chain_id,omitempty"`
}

// Owner is one holder record of an item.
type Owner struct {
	Address  string   `json:"address"`
	Quantity Quantity `json:"quantity"`
}

// OwnersPage is one cursor-paginated page of item holders.
type OwnersPage struct {
	Results []Owner `json:"results"`
	HasMore bool    `json:"has_more"`
	Cursor  string  `json:"cursor"`
}

type errorEnvelope struct {
	Error *struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Code   string `json:"code"`
	} `json:"error"`
}
