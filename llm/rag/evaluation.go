package rag

import (
	"math"
	"strings"
	"unicode/utf8"

	"routeqa/llm"
)

// Evaluation is a placeholder quality signal for an answer.
type Evaluation struct {
	Score float64        `json:"score"`
	Meta  EvaluationMeta `json:"meta"`
}

// EvaluationMeta records the sizes the score was computed from.
type EvaluationMeta struct {
	QuestionLen int `json:"question_len"`
	AnswerLen   int `json:"answer_len"`
}

// Evaluate scores an answer: 0.6 when the trimmed answer is longer than
// ten characters, plus 0.4 when it is backed by at least one source.
func Evaluate(question, answer string, sources []llm.SearchHit) Evaluation {
	score := 0.0
	if utf8.RuneCountInString(strings.TrimSpace(answer)) > 10 {
		score += 0.6
	}
	if len(sources) > 0 {
		score += 0.4
	}
	return Evaluation{
		Score: math.Round(score*100) / 100,
		Meta: EvaluationMeta{
			QuestionLen: utf8.RuneCountInString(question),
			AnswerLen:   utf8.RuneCountInString(answer),
		},
	}
}
