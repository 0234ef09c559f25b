// models/frame.go - Frame configuration (one deployable "crab club")
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Frame is one deployable instance of the challenge flow, linked to a single
// issuance collection and item.
type Frame struct {
	ID                string                          `json:"id" gorm:"primaryKey;size:36"`
	Name              string                          `json:"name" gorm:"not null;size:100"`
	SecurityLevel     int                             `json:"security_level" gorm:"default:0"`
	ProofItemID       string                          `json:"phosphor_proof_item_id" gorm:"column:phosphor_proof_item_id;size:64"`
	ProofURL          string                          `json:"phosphor_proof_url" gorm:"column:phosphor_proof_url;size:500"`
	OrganizationID    string                          `json:"phosphor_organization_id" gorm:"column:phosphor_organization_id;size:64"`
	ProofCollectionID string                          `json:"phosphor_proof_collection_id" gorm:"column:phosphor_proof_collection_id;size:64"`
	AccountFid        string                          `json:"account_fid" gorm:"index;size:32"`
	AccountAddress    string                          `json:"account_address" gorm:"size:64"`
	AccountUser       datatypes.JSONType[AccountUser] `json:"account_user" gorm:"column:account_user"`
	// IssuanceAPIKey is read only through Repository.GetFrameAPIKey.
	IssuanceAPIKey string    `json:"-" gorm:"column:phosphor_api_key;size:200"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountUser is the profile snapshot of the frame owner at cloning time.
type AccountUser struct {
	Fid         string `json:"fid,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PfpURL      string `json:"pfp_url,omitempty"`
}

func (Frame) TableName() string {
	return "poc_frame"
}
