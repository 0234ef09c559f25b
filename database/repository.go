// database/repository.go - Keyed read/update/insert operations for frames, questions and challenges
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"proofofcrab/models"

	"gorm.io/gorm"
)

// Repository is the GORM-backed persistence layer.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func wrapErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
}

// ================== FRAMES ==================

// GetFrame loads a frame without its issuance credential.
func (r *Repository) GetFrame(ctx context.Context, id string) (*models.Frame, error) {
	if id == "" {
		return nil, fmt.Errorf("get frame: empty id: %w", models.ErrNotFound)
	}
	var frame models.Frame
	if err := r.db.WithContext(ctx).Omit("phosphor_api_key").Where("id = ?", id).First(&frame).Error; err != nil {
		return nil, wrapErr("get frame "+id, err)
	}
	return &frame, nil
}

// GetFrameAPIKey returns the frame's issuance credential, possibly empty.
func (r *Repository) GetFrameAPIKey(ctx context.Context, id string) (string, error) {
	var keys []string
	if err := r.db.WithContext(ctx).Model(&models.Frame{}).Where("id = ?", id).Pluck("phosphor_api_key", &keys).Error; err != nil {
		return "", wrapErr("get frame api key", err)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("get frame api key %s: %w", id, models.ErrNotFound)
	}
	return keys[0], nil
}

func (r *Repository) CreateFrame(ctx context.Context, frame *models.Frame) error {
	if err := r.db.WithContext(ctx).Create(frame).Error; err != nil {
		return wrapErr("create frame", err)
	}
	return nil
}

// CountFramesForAccount counts frames owned by fid.
func (r *Repository) CountFramesForAccount(ctx context.Context, fid string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Frame{}).Where("account_fid = ?", fid).Count(&n).Error; err != nil {
		return 0, wrapErr("count frames", err)
	}
	return n, nil
}

// UpdateFrameItem links a provisioned issuance item to a frame.
func (r *Repository) UpdateFrameItem(ctx context.Context, frameID, itemID string) error {
	res := r.db.WithContext(ctx).Model(&models.Frame{}).Where("id = ?", frameID).
		Updates(map[string]interface{}{"phosphor_proof_item_id": itemID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return wrapErr("update frame item", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update frame item %s: %w", frameID, models.ErrNotFound)
	}
	return nil
}

// ================== QUESTIONS ==================

// GetQuestions returns the whole bank in position order.
func (r *Repository) GetQuestions(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).Order("position ASC, id ASC").Find(&questions).Error; err != nil {
		return nil, wrapErr("get questions", err)
	}
	return questions, nil
}

// CreateQuestions inserts questions in batches.
func (r *Repository) CreateQuestions(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return wrapErr("create questions", err)
	}
	return nil
}

// ================== CHALLENGES ==================

func (r *Repository) CreateChallenge(ctx context.Context, challenge *models.Challenge) error {
	if challenge.Version == 0 {
		challenge.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(challenge).Error; err != nil {
		return wrapErr("create challenge", err)
	}
	return nil
}

func (r *Repository) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	if id == "" {
		return nil, fmt.Errorf("get challenge: empty id: %w", models.ErrNotFound)
	}
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&challenge).Error; err != nil {
		return nil, wrapErr("get challenge "+id, err)
	}
	return &challenge, nil
}

// UpdateChallengeSteps replaces steps and score if the stored version still
// matches challenge.Version. On success the version is bumped in place.
func (r *Repository) UpdateChallengeSteps(ctx context.Context, challenge *models.Challenge) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ? AND version = ?", challenge.ID, challenge.Version).
		Updates(map[string]interface{}{
			"steps":      challenge.Steps,
			"score":      challenge.Score,
			"version":    challenge.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return wrapErr("update challenge steps", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.staleWrite(ctx, "update challenge steps", challenge.ID)
	}
	challenge.Version++
	challenge.UpdatedAt = now
	return nil
}

// ReserveChallengeMint claims the right to mint by stamping mint_requested_at.
// Only one caller wins: the row must be at challenge.Version, unminted and
// unreserved, otherwise ErrConflict.
func (r *Repository) ReserveChallengeMint(ctx context.Context, challenge *models.Challenge) error {
	now := time.Now().UTC()
	requestedAt := now
	if challenge.MintRequestedAt != nil {
		requestedAt = challenge.MintRequestedAt.UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ? AND version = ? AND has_minted_proof = ? AND mint_requested_at IS NULL", challenge.ID, challenge.Version, false).
		Updates(map[string]interface{}{
			"mint_requested_at": requestedAt,
			"version":           challenge.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return wrapErr("reserve challenge mint", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.staleWrite(ctx, "reserve challenge mint", challenge.ID)
	}
	challenge.MintRequestedAt = &requestedAt
	challenge.Version++
	challenge.UpdatedAt = now
	return nil
}

// UpdateChallengeProof writes the mint fields once, or clears a reservation
// when HasMintedProof is false. A challenge that already carries a proof, or a
// stale version, is rejected with ErrConflict.
func (r *Repository) UpdateChallengeProof(ctx context.Context, challenge *models.Challenge) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ? AND version = ? AND has_minted_proof = ?", challenge.ID, challenge.Version, false).
		Updates(map[string]interface{}{
			"has_minted_proof":  challenge.HasMintedProof,
			"mint_tx_id":        challenge.MintTxID,
			"mint_destination":  challenge.MintDestination,
			"mint_requested_at": challenge.MintRequestedAt,
			"version":           challenge.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return wrapErr("update challenge proof", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.staleWrite(ctx, "update challenge proof", challenge.ID)
	}
	challenge.Version++
	challenge.UpdatedAt = now
	return nil
}

func (r *Repository) staleWrite(ctx context.Context, op, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Challenge{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, models.ErrNotFound)
	}
	return fmt.Errorf("%s %s: stale write: %w", op, id, models.ErrConflict)
}

// ================== PROVISIONED ITEMS ==================

func (r *Repository) CreateProvisionedItem(ctx context.Context, item *models.ProvisionedItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return wrapErr("create provisioned item", err)
	}
	return nil
}

func (r *Repository) UpdateProvisionedItem(ctx context.Context, item *models.ProvisionedItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return wrapErr("update provisioned item", err)
	}
	return nil
}

// ListProvisionedItems returns items in the given status, oldest first.
func (r *Repository) ListProvisionedItems(ctx context.Context, status models.ItemStatus) ([]models.ProvisionedItem, error) {
	var items []models.ProvisionedItem
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, wrapErr("list provisioned items", err)
	}
	return items, nil
}
