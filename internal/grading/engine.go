// Package grading scores a single answer against its decrypted answer key.
// It is pure: no storage, no clock, no side effects.
package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/quinloq/examgate/internal/model"
)

// DefaultSimilarityThreshold applies to short answers when the question does
// not override it.
const DefaultSimilarityThreshold = 0.9

// Question is the minimal view of a question needed for grading.
type Question struct {
	Type      model.QuestionType
	AnswerKey string // decrypted JSON answer key
	Points    float64
	// SimilarityThreshold for short answers; values <= 0 fall back to the default.
	SimilarityThreshold float64
}

// Result is the outcome of grading one answer.
type Result struct {
	Score          *float64
	MaxPoints      float64
	Correct        bool
	RequiresManual bool
	Feedback       string
}

type choicePayload struct {
	Selected string `json:"selected"`
}

type multiPayload struct {
	Selected []string `json:"selected"`
}

type matchingPayload struct {
	Pairs map[string]string `json:"pairs"`
}

type textPayload struct {
	Text string `json:"text"`
}

// Grade dispatches on the closed question-type set. An unknown type is an
// error so package/question drift surfaces instead of silently scoring zero.
func Grade(q Question, payload string) (Result, error) {
	switch q.Type {
	case model.QuestionSingleChoice, model.QuestionTrueFalse:
		return gradeExactMatch(q, payload)
	case model.QuestionMultiSelect:
		return gradeMultiSelect(q, payload)
	case model.QuestionMatching:
		return gradeMatching(q, payload)
	case model.QuestionShortAnswer:
		return gradeShortAnswer(q, payload)
	case model.QuestionEssay:
		return Result{MaxPoints: q.Points, RequiresManual: true, Feedback: "manual grading required"}, nil
	default:
		return Result{}, fmt.Errorf("unknown question type %q", q.Type)
	}
}

func gradeExactMatch(q Question, payload string) (Result, error) {
	res := Result{MaxPoints: q.Points}

	var ans, key choicePayload
	if err := json.Unmarshal([]byte(payload), &ans); err != nil {
		return res, fmt.Errorf("decode answer payload: %w", err)
	}
	if err := json.Unmarshal([]byte(q.AnswerKey), &key); err != nil {
		return res, fmt.Errorf("decode answer key: %w", err)
	}

	score := 0.0
	if strings.EqualFold(strings.TrimSpace(ans.Selected), strings.TrimSpace(key.Selected)) {
		score = q.Points
		res.Correct = true
	}
	res.Score = &score
	return res, nil
}

func gradeMultiSelect(q Question, payload string) (Result, error) {
	res := Result{MaxPoints: q.Points}

	var ans, key multiPayload
	if err := json.Unmarshal([]byte(payload), &ans); err != nil {
		return res, fmt.Errorf("decode answer payload: %w", err)
	}
	if err := json.Unmarshal([]byte(q.AnswerKey), &key); err != nil {
		return res, fmt.Errorf("decode answer key: %w", err)
	}
	if len(key.Selected) == 0 {
		return res, fmt.Errorf("multi-select answer key has no correct options")
	}

	correct := toSet(key.Selected)
	selected := toSet(ans.Selected)

	hits, wrong := 0, 0
	for s := range selected {
		if _, ok := correct[s]; ok {
			hits++
		} else {
			wrong++
		}
	}

	// Partial credit: max(0, (hits - wrong) / |correct|) x points.
	fraction := math.Max(0, float64(hits-wrong)/float64(len(correct)))
	score := round2(fraction * q.Points)
	res.Score = &score
	res.Correct = hits == len(correct) && wrong == 0 && len(selected) == len(correct)
	return res, nil
}

func gradeMatching(q Question, payload string) (Result, error) {
	res := Result{MaxPoints: q.Points}

	var ans, key matchingPayload
	if err := json.Unmarshal([]byte(payload), &ans); err != nil {
		return res, fmt.Errorf("decode answer payload: %w", err)
	}
	if err := json.Unmarshal([]byte(q.AnswerKey), &key); err != nil {
		return res, fmt.Errorf("decode answer key: %w", err)
	}
	if len(key.Pairs) == 0 {
		return res, fmt.Errorf("matching answer key has no pairs")
	}

	matched := 0
	for left, right := range key.Pairs {
		if got, ok := ans.Pairs[left]; ok && strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(right)) {
			matched++
		}
	}

	score := round2(float64(matched) / float64(len(key.Pairs)) * q.Points)
	res.Score = &score
	res.Correct = matched == len(key.Pairs)
	return res, nil
}

func gradeShortAnswer(q Question, payload string) (Result, error) {
	res := Result{MaxPoints: q.Points}

	var ans, key textPayload
	if err := json.Unmarshal([]byte(payload), &ans); err != nil {
		return res, fmt.Errorf("decode answer payload: %w", err)
	}
	if err := json.Unmarshal([]byte(q.AnswerKey), &key); err != nil {
		return res, fmt.Errorf("decode answer key: %w", err)
	}

	threshold := q.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	sim := similarity(normalize(ans.Text), normalize(key.Text))
	score := 0.0
	if sim >= threshold {
		score = q.Points
		res.Correct = true
	}
	res.Score = &score
	res.Feedback = fmt.Sprintf("similarity %.2f (threshold %.2f)", sim, threshold)
	return res, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
