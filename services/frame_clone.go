// services/frame_clone.go - Provisions custom frames from the default template
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"proofofcrab/identity"
	"proofofcrab/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FrameCloner struct {
	frames        FrameStore
	allowMultiple bool
	now           func() time.Time
}

// NewFrameCloner refuses a second frame per owner unless allowMultiple is set.
func NewFrameCloner(frames FrameStore, allowMultiple bool) *FrameCloner {
	return &FrameCloner{frames: frames, allowMultiple: allowMultiple, now: time.Now}
}

// Clone creates a frame bound to ownerFid that shares the template's issuance
// collection and security level. Credentials and the proof item are not
// copied; they are provisioned for the new frame separately.
func (c *FrameCloner) Clone(ctx context.Context, template *models.Frame, ownerFid, ownerAddress string, profile *identity.Profile) (*models.Frame, error) {
	if ownerFid == "" {
		return nil, fmt.Errorf("owner fid is empty: %w", models.ErrValidation)
	}

	if !c.allowMultiple {
		count, err := c.frames.CountFramesForAccount(ctx, ownerFid)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("fid %s already owns %d frame(s): %w", ownerFid, count, models.ErrConflict)
		}
	}

	account := models.AccountUser{Fid: ownerFid}
	name := template.Name
	if profile != nil {
		account.Username = profile.Username
		account.DisplayName = profile.DisplayName
		account.PfpURL = profile.PfpURL
		switch {
		case profile.DisplayName != "":
			name = profile.DisplayName
		case profile.Username != "":
			name = profile.Username
		}
	}

	frame := &models.Frame{
		ID:                uuid.NewString(),
		Name:              name,
		SecurityLevel:     template.SecurityLevel,
		OrganizationID:    template.OrganizationID,
		ProofCollectionID: template.ProofCollectionID,
		AccountFid:        ownerFid,
		AccountAddress:    ownerAddress,
		AccountUser:       datatypes.NewJSONType(account),
		CreatedAt:         c.now().UTC(),
	}
	if err := c.frames.CreateFrame(ctx, frame); err != nil {
		return nil, fmt.Errorf("create frame: %w", err)
	}

	log.Printf("[FRAME] Cloned frame %s from template %s for fid %s", frame.ID, template.ID, ownerFid)
	return frame, nil
}
