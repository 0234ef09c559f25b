// services/stores.go - Collaborator contracts consumed by the challenge services
package services

import (
	"context"

	"proofofcrab/identity"
	"proofofcrab/issuance"
	"proofofcrab/models"
)

// FrameStore reads and provisions frame configurations.
type FrameStore interface {
	GetFrame(ctx context.Context, id string) (*models.Frame, error)
	GetFrameAPIKey(ctx context.Context, id string) (string, error)
	CreateFrame(ctx context.Context, frame *models.Frame) error
	CountFramesForAccount(ctx context.Context, fid string) (int64, error)
	UpdateFrameItem(ctx context.Context, frameID, itemID string) error
}

// QuestionStore exposes the question bank.
type QuestionStore interface {
	GetQuestions(ctx context.Context) ([]models.Question, error)
}

// ChallengeStore persists challenges. Every update method is compare-and-swap
// on Challenge.Version and returns models.ErrConflict on a stale write.
// ReserveChallengeMint also fails with models.ErrConflict when the stored
// challenge is minted or already reserved.
type ChallengeStore interface {
	CreateChallenge(ctx context.Context, challenge *models.Challenge) error
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	UpdateChallengeSteps(ctx context.Context, challenge *models.Challenge) error
	ReserveChallengeMint(ctx context.Context, challenge *models.Challenge) error
	UpdateChallengeProof(ctx context.Context, challenge *models.Challenge) error
}

// ItemStore tracks the provisioning saga.
type ItemStore interface {
	CreateProvisionedItem(ctx context.Context, item *models.ProvisionedItem) error
	UpdateProvisionedItem(ctx context.Context, item *models.ProvisionedItem) error
	ListProvisionedItems(ctx context.Context, status models.ItemStatus) ([]models.ProvisionedItem, error)
}

// Issuer is the authenticated side of the asset-issuance service.
type Issuer interface {
	CreateItem(ctx context.Context, apiKey string, req issuance.CreateItemRequest) (*issuance.Item, error)
	LockItem(ctx context.Context, apiKey, itemID string, maxSupply int) (*issuance.Item, error)
	CreateMintRequest(ctx context.Context, apiKey string, req issuance.MintRequest) (*issuance.MintResponse, error)
	GetTransaction(ctx context.Context, apiKey, transactionID string) (*issuance.Transaction, error)
	GetItem(ctx context.Context, apiKey, itemID string) (*issuance.Item, error)
}

// OwnersLister is the public, cursor-paginated holders lookup.
type OwnersLister interface {
	ListOwners(ctx context.Context, itemID, cursor string) (*issuance.OwnersPage, error)
}

// IdentityResolver maps a user id to a profile; nil means unknown user.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, fid string) (*identity.Profile, error)
}
