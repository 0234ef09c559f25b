// services/progression.go - Challenge progression state machine
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"proofofcrab/models"

	"gorm.io/datatypes"
)

// ProgressState is where a challenge sits in its state machine.
type ProgressState string

const (
	StateAwaitingStep ProgressState = "AWAITING_STEP"
	StatePassed       ProgressState = "PASSED"
	StateFailed       ProgressState = "FAILED"
)

// Progress is the outcome of a transition and tells the caller what to render.
type Progress struct {
	Challenge *models.Challenge
	State     ProgressState
	// Step and Question describe the next step when State is StateAwaitingStep.
	Step     int
	Question *models.StepQuestion
	// Graded is the step the last submission was recorded on.
	Graded *models.ChallengeStep
	// Replayed is set when an answer arrived for an already completed
	// challenge; nothing was written.
	Replayed bool
}

// ProgressionEngine advances a challenge one answer at a time.
type ProgressionEngine struct {
	challenges ChallengeStore
	now        func() time.Time
}

func NewProgressionEngine(challenges ChallengeStore) *ProgressionEngine {
	return &ProgressionEngine{challenges: challenges, now: time.Now}
}

// Current reports the state of a challenge without changing it.
func (e *ProgressionEngine) Current(ctx context.Context, challengeID string) (*Progress, error) {
	challenge, err := e.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return ProgressOf(challenge)
}

// SubmitAnswer grades answer against the first unanswered step, scores the
// challenge once every step is answered and persists the whole step
// collection. Answers for a completed challenge are a no-op that returns the
// existing terminal state.
func (e *ProgressionEngine) SubmitAnswer(ctx context.Context, challengeID, answer string) (*Progress, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("empty answer for challenge %s: %w", challengeID, models.ErrValidation)
	}

	challenge, err := e.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if challenge.Completed() {
		log.Printf("[PROGRESSION] Challenge %s already %s, ignoring answer", challenge.ID, challenge.Score)
		progress, err := ProgressOf(challenge)
		if err != nil {
			return nil, err
		}
		progress.Replayed = true
		return progress, nil
	}

	steps := challenge.Steps.Data()
	steps.SortByPosition()
	if err := steps.Validate(); err != nil {
		return nil, fmt.Errorf("challenge %s: %w", challenge.ID, err)
	}

	idx := steps.FirstUnanswered()
	if idx < 0 {
		return nil, fmt.Errorf("challenge %s has every step answered but no score: %w", challenge.ID, models.ErrValidation)
	}
	step := &steps.Questions[idx]
	step.Grade(answer, e.now().UTC())
	log.Printf("[PROGRESSION] Challenge %s step %d answered, valid=%t", challenge.ID, step.Position, step.Valid())

	if steps.AnsweredCount() == steps.TotalSteps {
		if steps.AllValid() {
			challenge.Score = models.ScorePassed
		} else {
			challenge.Score = models.ScoreFailed
		}
		log.Printf("[PROGRESSION] Score for challenge %s is %s", challenge.ID, challenge.Score)
	}
	graded := *step
	challenge.Steps = datatypes.NewJSONType(steps)

	if err := e.challenges.UpdateChallengeSteps(ctx, challenge); err != nil {
		return nil, fmt.Errorf("save challenge %s: %w", challenge.ID, err)
	}

	progress, err := ProgressOf(challenge)
	if err != nil {
		return nil, err
	}
	progress.Graded = &graded
	return progress, nil
}

func (e *ProgressionEngine) load(ctx context.Context, challengeID string) (*models.Challenge, error) {
	if challengeID == "" {
		return nil, fmt.Errorf("challenge id is empty: %w", models.ErrNotFound)
	}
	return e.challenges.GetChallenge(ctx, challengeID)
}

// ProgressOf derives the state machine position from a stored challenge.
func ProgressOf(challenge *models.Challenge) (*Progress, error) {
	switch challenge.Score {
	case models.ScorePassed:
		return &Progress{Challenge: challenge, State: StatePassed}, nil
	case models.ScoreFailed:
		return &Progress{Challenge: challenge, State: StateFailed}, nil
	}

	steps := challenge.Steps.Data()
	steps.SortByPosition()
	if err := steps.Validate(); err != nil {
		return nil, fmt.Errorf("challenge %s: %w", challenge.ID, err)
	}
	idx := steps.FirstUnanswered()
	if idx < 0 {
		return nil, fmt.Errorf("challenge %s has every step answered but no score: %w", challenge.ID, models.ErrValidation)
	}
	next := steps.Questions[idx]
	return &Progress{
		Challenge: challenge,
		State:     StateAwaitingStep,
		Step:      next.Position,
		Question:  &next.Question,
	}, nil
}
