package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestions(t *testing.T) {
	data := []byte(`[
		{"prompt":"Capital of France?","proposed_answers":["Paris","Rome","Oslo","Bern"],"correct_answer":"paris"},
		{"prompt":"Too few","proposed_answers":["a","b"],"correct_answer":"a"},
		{"prompt":"Wrong answer","proposed_answers":["a","b","c","d"],"correct_answer":"e"},
		{"image_url":"https://img/q.png","position":7,"proposed_answers":[" a ","b","c","d"],"correct_answer":"a"}
	]`)

	questions, skipped, err := parseQuestions(data, "frame-1")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Len(t, skipped, 2)

	assert.Equal(t, 1, questions[0].Position)
	assert.Equal(t, "frame-1", questions[0].FrameID)
	assert.Equal(t, 7, questions[1].Position)
	assert.Equal(t, []string{"a", "b", "c", "d"}, questions[1].Answers())
}

func TestParseQuestionsRejectsBadJSON(t *testing.T) {
	_, _, err := parseQuestions([]byte(`{"not":"a list"}`), "")
	assert.Error(t, err)
}
