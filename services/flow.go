// services/flow.go - Start of a challenge: ownership gate then builder
package services

import (
	"context"
	"fmt"
	"log"

	"proofofcrab/models"
)

// ChallengeFlow runs the "start" event of a frame.
type ChallengeFlow struct {
	frames          FrameStore
	users           IdentityResolver
	gate            *OwnershipGate
	builder         *ChallengeBuilder
	ignoreOwnership bool
}

func NewChallengeFlow(frames FrameStore, users IdentityResolver, gate *OwnershipGate, builder *ChallengeBuilder, ignoreOwnership bool) *ChallengeFlow {
	return &ChallengeFlow{
		frames:          frames,
		users:           users,
		gate:            gate,
		builder:         builder,
		ignoreOwnership: ignoreOwnership,
	}
}

// StartResult is either AlreadyOwned or a fresh challenge waiting on step 1.
type StartResult struct {
	Frame        *models.Frame
	AlreadyOwned bool
	Challenge    *models.Challenge
	Progress     *Progress
}

// Start blocks users who already hold the frame's proof and otherwise builds a
// new challenge. The addresses checked are the given ones plus every address
// the identity service knows for fid.
func (f *ChallengeFlow) Start(ctx context.Context, frameID, fid string, addresses ...string) (*StartResult, error) {
	frame, err := f.frames.GetFrame(ctx, frameID)
	if err != nil {
		return nil, err
	}

	if !f.ignoreOwnership {
		wallets, err := f.walletsOf(ctx, fid, addresses)
		if err != nil {
			return nil, err
		}
		owned, err := f.gate.Check(ctx, frame, wallets...)
		if err != nil {
			return nil, err
		}
		if owned {
			log.Printf("[CHALLENGE] fid %s already owns the proof of frame %s", fid, frame.ID)
			return &StartResult{Frame: frame, AlreadyOwned: true}, nil
		}
	}

	challenge, err := f.builder.BuildForFrame(ctx, frame, fid)
	if err != nil {
		return nil, err
	}
	progress, err := ProgressOf(challenge)
	if err != nil {
		return nil, err
	}
	return &StartResult{Frame: frame, Challenge: challenge, Progress: progress}, nil
}

func (f *ChallengeFlow) walletsOf(ctx context.Context, fid string, addresses []string) ([]string, error) {
	wallets := append([]string(nil), addresses...)
	if f.users == nil || fid == "" {
		return wallets, nil
	}
	profile, err := f.users.ResolveUser(ctx, fid)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", fid, err)
	}
	return append(wallets, profile.Addresses()...), nil
}
