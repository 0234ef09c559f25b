// services/question_bank.go - Question selection for a frame
package services

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"

	"proofofcrab/models"
)

// QuestionBank supplies the ordered questions a new challenge is built from.
type QuestionBank struct {
	store   QuestionStore
	limit   int
	shuffle bool
}

// NewQuestionBank caps selections at limit questions (0 keeps all) and
// optionally shuffles them.
func NewQuestionBank(store QuestionStore, limit int, shuffle bool) *QuestionBank {
	return &QuestionBank{store: store, limit: limit, shuffle: shuffle}
}

// Select returns the questions for frame. Questions scoped to the frame take
// precedence over the global bank.
func (b *QuestionBank) Select(ctx context.Context, frame *models.Frame) ([]models.Question, error) {
	all, err := b.store.GetQuestions(ctx)
	if err != nil {
		return nil, err
	}

	var scoped, global []models.Question
	for _, q := range all {
		if !q.Valid() {
			log.Printf("[QUESTIONS] Skipping malformed question %d", q.ID)
			continue
		}
		switch q.FrameID {
		case "":
			global = append(global, q)
		case frame.ID:
			scoped = append(scoped, q)
		}
	}

	selected := global
	if len(scoped) > 0 {
		selected = scoped
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no questions available for frame %s: %w", frame.ID, models.ErrValidation)
	}

	if b.shuffle {
		rand.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}
	if b.limit > 0 && len(selected) > b.limit {
		selected = selected[:b.limit]
	}
	return selected, nil
}
