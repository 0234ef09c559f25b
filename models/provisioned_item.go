// models/provisioned_item.go - Saga record for two-phase item provisioning
package models

import "time"

// ItemStatus tracks where a provisioned item is in the create-then-lock saga.
type ItemStatus string

const (
	ItemStatusCreated  ItemStatus = "CREATED"
	ItemStatusLocked   ItemStatus = "LOCKED"
	ItemStatusOrphaned ItemStatus = "ORPHANED"
)

// ProvisionedItem records an issuance item created for a frame. Items left
// ORPHANED were created but never locked and wait for reconciliation.
type ProvisionedItem struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	FrameID      string     `json:"frame_id" gorm:"not null;index;size:36"`
	ItemID       string     `json:"item_id" gorm:"not null;uniqueIndex;size:64"`
	MaxSupply    int        `json:"max_supply"`
	Status       ItemStatus `json:"status" gorm:"not null;size:20;index"`
	LastError    string     `json:"last_error,omitempty" gorm:"type:text"`
	LockAttempts int        `json:"lock_attempts" gorm:"default:0"`
	LockedAt     *time.Time `json:"locked_at"`
	// IssuanceAPIKey is the override credential the item was created with.
	// Empty means the frame's own key, which reconciliation then uses.
	IssuanceAPIKey string    `json:"-" gorm:"column:phosphor_api_key;size:200"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CredentialOverridden reports whether the item was created with a key other
// than the frame's.
func (i *ProvisionedItem) CredentialOverridden() bool {
	return i.IssuanceAPIKey != ""
}

func (ProvisionedItem) TableName() string {
	return "poc_provisioned_item"
}
