// services/challenge_builder.go - Creates new challenge instances
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"proofofcrab/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChallengeBuilder struct {
	frames     FrameStore
	challenges ChallengeStore
	bank       *QuestionBank
	now        func() time.Time
}

func NewChallengeBuilder(frames FrameStore, challenges ChallengeStore, bank *QuestionBank) *ChallengeBuilder {
	return &ChallengeBuilder{frames: frames, challenges: challenges, bank: bank, now: time.Now}
}

// Build persists a new challenge for fid on frameID with every step unanswered.
func (b *ChallengeBuilder) Build(ctx context.Context, frameID, fid string) (*models.Challenge, error) {
	frame, err := b.frames.GetFrame(ctx, frameID)
	if err != nil {
		return nil, err
	}
	return b.BuildForFrame(ctx, frame, fid)
}

// BuildForFrame is Build for a frame the caller already loaded.
func (b *ChallengeBuilder) BuildForFrame(ctx context.Context, frame *models.Frame, fid string) (*models.Challenge, error) {
	questions, err := b.bank.Select(ctx, frame)
	if err != nil {
		return nil, err
	}

	steps := models.ChallengeSteps{
		Questions:  make([]models.ChallengeStep, len(questions)),
		TotalSteps: len(questions),
	}
	for i, q := range questions {
		steps.Questions[i] = models.ChallengeStep{Position: i + 1, Question: q.Snapshot()}
	}

	challenge := &models.Challenge{
		ID:        uuid.NewString(),
		FrameID:   frame.ID,
		Fid:       fid,
		Steps:     datatypes.NewJSONType(steps),
		Version:   1,
		CreatedAt: b.now().UTC(),
	}
	if err := b.challenges.CreateChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}

	log.Printf("[CHALLENGE] Created challenge %s on frame %s for fid %s (%d steps)", challenge.ID, frame.ID, fid, steps.TotalSteps)
	return challenge, nil
}
