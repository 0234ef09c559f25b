// models/question.go - Trivia questions owned by the question bank
package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ProposedAnswerCount is the number of buttons a question renders.
const ProposedAnswerCount = 4

// Question is a single read-only trivia item. An empty FrameID means the
// question belongs to the global bank.
type Question struct {
	ID              uint                         `json:"id" gorm:"primaryKey"`
	FrameID         string                       `json:"frame_id,omitempty" gorm:"index;size:36"`
	Position        int                          `json:"position" gorm:"default:0"`
	Prompt          string                       `json:"prompt" gorm:"type:text"`
	ImageURL        string                       `json:"image_url" gorm:"size:500"`
	ProposedAnswers datatypes.JSONType[[]string] `json:"proposed_answers" gorm:"column:proposed_answers"`
	CorrectAnswer   string                       `json:"correct_answer" gorm:"not null;size:200"`
	CreatedAt       time.Time                    `json:"created_at"`
}

// Answers returns the proposed answers in display order.
func (q Question) Answers() []string {
	return q.ProposedAnswers.Data()
}

// IsCorrect grades an answer with case-insensitive equality.
func (q Question) IsCorrect(answer string) bool {
	return strings.EqualFold(answer, q.CorrectAnswer)
}

// Valid reports whether the question has the expected answer cardinality and
// its correct answer is one of the proposals.
func (q Question) Valid() bool {
	answers := q.Answers()
	if len(answers) != ProposedAnswerCount || q.CorrectAnswer == "" {
		return false
	}
	for _, a := range answers {
		if q.IsCorrect(a) {
			return true
		}
	}
	return false
}

func (Question) TableName() string {
	return "poc_question"
}
