// models/challenge.go - Challenge attempt and its steps
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ChallengeScore is the terminal verdict of a challenge. The zero value means
// the challenge is not completed yet.
type ChallengeScore string

const (
	ScoreNotCompleted ChallengeScore = ""
	ScorePassed       ChallengeScore = "PASSED"
	ScoreFailed       ChallengeScore = "FAILED"
)

// Challenge is one user's attempt at a frame's quiz.
type Challenge struct {
	ID              string                             `json:"id" gorm:"primaryKey;size:36"`
	FrameID         string                             `json:"frame_id" gorm:"not null;index;size:36"`
	Fid             string                             `json:"fid" gorm:"index;size:32"`
	Steps           datatypes.JSONType[ChallengeSteps] `json:"steps" gorm:"column:steps"`
	Score           ChallengeScore                     `json:"score" gorm:"size:20;index"`
	HasMintedProof  bool                               `json:"has_minted_proof" gorm:"default:false"`
	MintTxID        string                             `json:"mint_tx_id" gorm:"size:128"`
	MintDestination string                             `json:"mint_destination" gorm:"size:64"`
	MintRequestedAt *time.Time                         `json:"mint_requested_at,omitempty" gorm:"column:mint_requested_at"`
	Version         int                                `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
}

// ChallengeSteps is the ordered step collection persisted as one JSON document.
type ChallengeSteps struct {
	Questions  []ChallengeStep `json:"questions"`
	TotalSteps int             `json:"total_steps"`
}

// ChallengeStep binds a question snapshot into a challenge at a 1-based position.
type ChallengeStep struct {
	Position       int          `json:"position"`
	Question       StepQuestion `json:"question"`
	SelectedAnswer *string      `json:"selected_answer,omitempty"`
	IsValidAnswer  *bool        `json:"is_valid_answer,omitempty"`
	AnsweredAt     *time.Time   `json:"answered_at,omitempty"`
}

// StepQuestion is the copy of a bank question frozen into a challenge.
type StepQuestion struct {
	ID              uint     `json:"id"`
	Prompt          string   `json:"prompt,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	ProposedAnswers []string `json:"proposed_answers"`
	CorrectAnswer   string   `json:"correct_answer"`
}

// Snapshot freezes a bank question for embedding into a step.
func (q Question) Snapshot() StepQuestion {
	return StepQuestion{
		ID:              q.ID,
		Prompt:          q.Prompt,
		ImageURL:        q.ImageURL,
		ProposedAnswers: append([]string(nil), q.Answers()...),
		CorrectAnswer:   q.CorrectAnswer,
	}
}

// Answered reports whether the step carries an answer.
func (s ChallengeStep) Answered() bool {
	return s.SelectedAnswer != nil
}

// Valid reports the grading result; an ungraded step counts as invalid.
func (s ChallengeStep) Valid() bool {
	return s.IsValidAnswer != nil && *s.IsValidAnswer
}

// Grade records answer on the step and stamps the grading time.
func (s *ChallengeStep) Grade(answer string, at time.Time) {
	valid := strings.EqualFold(answer, s.Question.CorrectAnswer)
	s.SelectedAnswer = &answer
	s.IsValidAnswer = &valid
	s.AnsweredAt = &at
}

// Validate checks that positions are contiguous, 1-based, unique and match
// TotalSteps, and that answer and validity are set together.
func (cs ChallengeSteps) Validate() error {
	if cs.TotalSteps <= 0 {
		return fmt.Errorf("%w: challenge has no steps", ErrValidation)
	}
	if len(cs.Questions) != cs.TotalSteps {
		return fmt.Errorf("%w: %d steps for total_steps %d", ErrValidation, len(cs.Questions), cs.TotalSteps)
	}
	seen := make(map[int]bool, len(cs.Questions))
	for _, s := range cs.Questions {
		if s.Position < 1 || s.Position > cs.TotalSteps || seen[s.Position] {
			return fmt.Errorf("%w: invalid step position %d", ErrValidation, s.Position)
		}
		seen[s.Position] = true
		if s.Answered() != (s.IsValidAnswer != nil) {
			return fmt.Errorf("%w: step %d answer and validity out of sync", ErrValidation, s.Position)
		}
	}
	return nil
}

// SortByPosition orders the steps in place.
func (cs *ChallengeSteps) SortByPosition() {
	sort.SliceStable(cs.Questions, func(i, j int) bool {
		return cs.Questions[i].Position < cs.Questions[j].Position
	})
}

// FirstUnanswered returns the index of the lowest-position unanswered step,
// or -1 when every step is answered. Steps must be sorted.
func (cs ChallengeSteps) FirstUnanswered() int {
	for i, s := range cs.Questions {
		if !s.Answered() {
			return i
		}
	}
	return -1
}

// AnsweredCount returns how many steps carry an answer.
func (cs ChallengeSteps) AnsweredCount() int {
	n := 0
	for _, s := range cs.Questions {
		if s.Answered() {
			n++
		}
	}
	return n
}

// AllValid is the AND of every step's validity.
func (cs ChallengeSteps) AllValid() bool {
	for _, s := range cs.Questions {
		if !s.Valid() {
			return false
		}
	}
	return true
}

// MintReserved reports whether a mint was claimed but its transaction is not
// recorded yet.
func (c *Challenge) MintReserved() bool {
	return c.MintRequestedAt != nil && !c.HasMintedProof
}

// Completed reports whether the challenge reached a terminal score.
func (c *Challenge) Completed() bool {
	return c.Score == ScorePassed || c.Score == ScoreFailed
}

func (Challenge) TableName() string {
	return "poc_frame_challenge"
}
