// services/minting.go - Proof minting and proof item provisioning
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"proofofcrab/identity"
	"proofofcrab/issuance"
	"proofofcrab/models"

	"github.com/go-playground/validator/v10"
)

// MintingService talks to the issuance service on behalf of a frame.
type MintingService struct {
	frames     FrameStore
	challenges ChallengeStore
	items      ItemStore
	issuer     Issuer
	users      IdentityResolver
	maxSupply  int
	validate   *validator.Validate
	now        func() time.Time
}

func NewMintingService(frames FrameStore, challenges ChallengeStore, items ItemStore, issuer Issuer, users IdentityResolver, maxSupply int) *MintingService {
	return &MintingService{
		frames:     frames,
		challenges: challenges,
		items:      items,
		issuer:     issuer,
		users:      users,
		maxSupply:  maxSupply,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// MintResult is what a challenge mint produced.
type MintResult struct {
	Challenge     *models.Challenge
	Frame         *models.Frame
	TransactionID string
	// Cached is set when the challenge was already minted and no request was sent.
	Cached bool
}

// MintProof requests one unit of the frame's proof item for destination and
// returns the transaction id of the first created mint request. It does not
// check any challenge state and persists nothing.
func (s *MintingService) MintProof(ctx context.Context, frame *models.Frame, destination string) (string, error) {
	if frame.ProofItemID == "" {
		return "", fmt.Errorf("frame %s has no proof item: %w", frame.ID, models.ErrValidation)
	}

	apiKey, err := s.frames.GetFrameAPIKey(ctx, frame.ID)
	if err != nil {
		return "", err
	}

	resp, err := s.issuer.CreateMintRequest(ctx, apiKey, issuance.MintRequest{
		ItemID:    frame.ProofItemID,
		ToAddress: destination,
		Quantity:  1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.MintRequests) == 0 || resp.MintRequests[0].TransactionID == "" {
		return "", &issuance.APIError{Op: "mint", Detail: "no mint request created"}
	}

	txID := resp.MintRequests[0].TransactionID
	log.Printf("[MINT] Mint request for item %s on frame %s -> tx %s", frame.ProofItemID, frame.ID, txID)
	return txID, nil
}

// MintChallengeProof mints the proof for a passed challenge and records the
// transaction on it. A challenge that already minted returns its recorded
// transaction. An empty destination falls back to the user's custody address.
//
// The challenge is reserved before the issuance call, so concurrent requests
// send at most one mint; the losers get ErrConflict, or the cached result once
// the winner has recorded it.
func (s *MintingService) MintChallengeProof(ctx context.Context, challengeID, destination string) (*MintResult, error) {
	if challengeID == "" {
		return nil, fmt.Errorf("challenge id is empty: %w", models.ErrNotFound)
	}
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Score != models.ScorePassed {
		return nil, fmt.Errorf("challenge %s is not passed: %w", challenge.ID, models.ErrConflict)
	}

	frame, err := s.frames.GetFrame(ctx, challenge.FrameID)
	if err != nil {
		return nil, err
	}

	if challenge.HasMintedProof {
		return s.cachedMint(challenge, frame), nil
	}
	if challenge.MintReserved() {
		return nil, fmt.Errorf("challenge %s mint already in progress: %w", challenge.ID, models.ErrConflict)
	}

	destination, err = s.resolveDestination(ctx, challenge, destination)
	if err != nil {
		return nil, err
	}

	requestedAt := s.now().UTC()
	challenge.MintRequestedAt = &requestedAt
	if err := s.challenges.ReserveChallengeMint(ctx, challenge); err != nil {
		if errors.Is(err, models.ErrConflict) {
			if latest, getErr := s.challenges.GetChallenge(ctx, challenge.ID); getErr == nil && latest.HasMintedProof {
				return s.cachedMint(latest, frame), nil
			}
		}
		return nil, fmt.Errorf("reserve mint of challenge %s: %w", challenge.ID, err)
	}

	txID, err := s.MintProof(ctx, frame, destination)
	if err != nil {
		s.releaseMint(context.WithoutCancel(ctx), challenge)
		return nil, err
	}

	challenge.MintTxID = txID
	challenge.MintDestination = destination
	challenge.HasMintedProof = true
	if err := s.challenges.UpdateChallengeProof(ctx, challenge); err != nil {
		// the mint went out and the reservation stays; the tx id is only in the log now
		log.Printf("[MINT] Failed to record tx %s on challenge %s: %v", txID, challenge.ID, err)
		return nil, fmt.Errorf("save proof of challenge %s: %w", challenge.ID, err)
	}
	return &MintResult{Challenge: challenge, Frame: frame, TransactionID: txID}, nil
}

func (s *MintingService) cachedMint(challenge *models.Challenge, frame *models.Frame) *MintResult {
	log.Printf("[MINT] Challenge %s already minted (tx %s)", challenge.ID, challenge.MintTxID)
	return &MintResult{Challenge: challenge, Frame: frame, TransactionID: challenge.MintTxID, Cached: true}
}

// releaseMint drops the reservation after a failed issuance call so the user
// can retry.
func (s *MintingService) releaseMint(ctx context.Context, challenge *models.Challenge) {
	challenge.MintRequestedAt = nil
	if err := s.challenges.UpdateChallengeProof(ctx, challenge); err != nil {
		log.Printf("[MINT] Failed to release mint reservation of challenge %s: %v", challenge.ID, err)
	}
}

func (s *MintingService) resolveDestination(ctx context.Context, challenge *models.Challenge, destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" && s.users != nil && challenge.Fid != "" {
		profile, err := s.users.ResolveUser(ctx, challenge.Fid)
		if err != nil {
			return "", fmt.Errorf("resolve user %s: %w", challenge.Fid, err)
		}
		if profile != nil {
			destination = profile.CustodyAddress
		}
	}
	if err := s.validate.Var(destination, "required,eth_addr"); err != nil {
		return "", fmt.Errorf("invalid destination address %q: %w", destination, models.ErrValidation)
	}
	return destination, nil
}

// ChallengeTransaction looks up the transaction recorded on a minted challenge.
func (s *MintingService) ChallengeTransaction(ctx context.Context, challengeID string) (*issuance.Transaction, error) {
	if challengeID == "" {
		return nil, fmt.Errorf("challenge id is empty: %w", models.ErrNotFound)
	}
	challenge, err := s.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.HasMintedProof || challenge.MintTxID == "" {
		return nil, fmt.Errorf("challenge %s has no proof transaction: %w", challenge.ID, models.ErrNotFound)
	}
	apiKey, err := s.frames.GetFrameAPIKey(ctx, challenge.FrameID)
	if err != nil {
		return nil, err
	}
	return s.issuer.GetTransaction(ctx, apiKey, challenge.MintTxID)
}

// FrameItem fetches the frame's proof item from the issuance service.
func (s *MintingService) FrameItem(ctx context.Context, frame *models.Frame) (*issuance.Item, error) {
	if frame.ProofItemID == "" {
		return nil, fmt.Errorf("frame %s has no proof item: %w", frame.ID, models.ErrNotFound)
	}
	apiKey, err := s.frames.GetFrameAPIKey(ctx, frame.ID)
	if err != nil {
		return nil, err
	}
	return s.issuer.GetItem(ctx, apiKey, frame.ProofItemID)
}

// ================== PROVISIONING ==================

// ItemTitle is the issuance item title for a community owner.
func ItemTitle(displayName string) string {
	return fmt.Sprintf("%s's Proof of Crab", displayName)
}

// ItemDescription is the issuance item description for a community owner.
func ItemDescription(displayName string) string {
	return fmt.Sprintf("This is a proof of crab, certifying that its holder is a real crab of %s's crabs community", displayName)
}

// ProvisionItem creates the frame's proof item in the template collection and
// locks its supply. A lock failure leaves the item ORPHANED for ReconcileOrphans
// and is returned together with the saga record.
func (s *MintingService) ProvisionItem(ctx context.Context, frame *models.Frame, credential, ownerFid, artworkURL string, profile *identity.Profile) (*models.ProvisionedItem, error) {
	if frame.ProofCollectionID == "" {
		return nil, fmt.Errorf("frame %s has no proof collection: %w", frame.ID, models.ErrValidation)
	}
	override := credential
	if credential == "" {
		key, err := s.frames.GetFrameAPIKey(ctx, frame.ID)
		if err != nil {
			return nil, err
		}
		credential = key
	}

	displayName, username := frame.Name, ""
	if profile != nil {
		username = profile.Username
		if profile.DisplayName != "" {
			displayName = profile.DisplayName
		} else if profile.Username != "" {
			displayName = profile.Username
		}
	}

	created, err := s.issuer.CreateItem(ctx, credential, issuance.CreateItemRequest{
		CollectionID: frame.ProofCollectionID,
		Attributes: issuance.ItemAttributes{
			Title:       ItemTitle(displayName),
			Description: ItemDescription(displayName),
			ImageURL:    artworkURL,
			Fid:         ownerFid,
			Username:    username,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	log.Printf("[PROVISION] Created item %s for frame %s", created.ID, frame.ID)

	item := &models.ProvisionedItem{
		FrameID:        frame.ID,
		ItemID:         created.ID,
		MaxSupply:      s.maxSupply,
		Status:         models.ItemStatusCreated,
		IssuanceAPIKey: override,
	}
	if err := s.items.CreateProvisionedItem(ctx, item); err != nil {
		log.Printf("[PROVISION] Item %s exists remotely for frame %s but its record failed, lock it by hand: %v", created.ID, frame.ID, err)
		return nil, fmt.Errorf("record created item %s of frame %s (not locked, no saga record): %w", created.ID, frame.ID, err)
	}

	if err := s.lock(ctx, credential, item); err != nil {
		return item, err
	}
	return item, nil
}

// lock runs the second saga phase and moves item to LOCKED or ORPHANED.
func (s *MintingService) lock(ctx context.Context, credential string, item *models.ProvisionedItem) error {
	item.LockAttempts++
	_, lockErr := s.issuer.LockItem(ctx, credential, item.ItemID, item.MaxSupply)
	if lockErr != nil {
		item.Status = models.ItemStatusOrphaned
		item.LastError = lockErr.Error()
		log.Printf("[PROVISION] Lock of item %s failed (attempt %d): %v", item.ItemID, item.LockAttempts, lockErr)
		if err := s.items.UpdateProvisionedItem(ctx, item); err != nil {
			return errors.Join(fmt.Errorf("lock item %s: %w", item.ItemID, lockErr), err)
		}
		return fmt.Errorf("lock item %s: %w", item.ItemID, lockErr)
	}
	return s.markLocked(ctx, item)
}

func (s *MintingService) markLocked(ctx context.Context, item *models.ProvisionedItem) error {
	now := s.now().UTC()
	item.Status = models.ItemStatusLocked
	item.LastError = ""
	item.LockedAt = &now
	if err := s.items.UpdateProvisionedItem(ctx, item); err != nil {
		return fmt.Errorf("record lock of item %s: %w", item.ItemID, err)
	}
	if err := s.frames.UpdateFrameItem(ctx, item.FrameID, item.ItemID); err != nil {
		return fmt.Errorf("link item %s to frame %s: %w", item.ItemID, item.FrameID, err)
	}
	log.Printf("[PROVISION] Item %s locked at supply %d and linked to frame %s", item.ItemID, item.MaxSupply, item.FrameID)
	return nil
}

// itemCredential is the key an item was created with: its recorded override,
// otherwise the frame's stored key.
func (s *MintingService) itemCredential(ctx context.Context, item *models.ProvisionedItem) (string, error) {
	if item.CredentialOverridden() {
		return item.IssuanceAPIKey, nil
	}
	return s.frames.GetFrameAPIKey(ctx, item.FrameID)
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Checked int `json:"checked"`
	Locked  int `json:"locked"`
	Failed  int `json:"failed"`
}

// ReconcileOrphans retries the lock phase for every ORPHANED item. Items the
// service already reports as locked are only marked.
func (s *MintingService) ReconcileOrphans(ctx context.Context) (*ReconcileReport, error) {
	orphans, err := s.items.ListProvisionedItems(ctx, models.ItemStatusOrphaned)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for i := range orphans {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		item := &orphans[i]
		report.Checked++

		apiKey, err := s.itemCredential(ctx, item)
		if err != nil {
			log.Printf("[RECONCILE] No credential for frame %s of item %s: %v", item.FrameID, item.ItemID, err)
			report.Failed++
			continue
		}

		remote, lookupErr := s.issuer.GetItem(ctx, apiKey, item.ItemID)
		if lookupErr == nil && remote.Locked {
			err = s.markLocked(ctx, item)
		} else {
			err = s.lock(ctx, apiKey, item)
		}
		if err != nil {
			log.Printf("[RECONCILE] Item %s still orphaned: %v", item.ItemID, err)
			report.Failed++
			continue
		}
		report.Locked++
	}

	if report.Checked > 0 {
		log.Printf("[RECONCILE] Checked %d orphaned items: %d locked, %d failed", report.Checked, report.Locked, report.Failed)
	}
	return report, nil
}
