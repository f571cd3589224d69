package grading

import (
	"testing"

	"github.com/quinloq/examgate/internal/model"
)

func TestGradeExactMatch(t *testing.T) {
	tests := []struct {
		name      string
		qType     model.QuestionType
		key       string
		payload   string
		wantScore float64
		wantOK    bool
	}{
		{"single choice correct", model.QuestionSingleChoice, `{"selected":"B"}`, `{"selected":"B"}`, 10, true},
		{"single choice case-insensitive", model.QuestionSingleChoice, `{"selected":"b"}`, `{"selected":"B"}`, 10, true},
		{"single choice wrong", model.QuestionSingleChoice, `{"selected":"B"}`, `{"selected":"C"}`, 0, false},
		{"true/false correct", model.QuestionTrueFalse, `{"selected":"true"}`, `{"selected":"TRUE"}`, 10, true},
		{"whitespace trimmed", model.QuestionSingleChoice, `{"selected":"B"}`, `{"selected":" B "}`, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Grade(Question{Type: tt.qType, AnswerKey: tt.key, Points: 10}, tt.payload)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if res.Score == nil || *res.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", res.Score, tt.wantScore)
			}
			if res.Correct != tt.wantOK {
				t.Errorf("correct = %v, want %v", res.Correct, tt.wantOK)
			}
		})
	}
}

func TestGradeMultiSelect(t *testing.T) {
	key := `{"selected":["a","c"]}`
	tests := []struct {
		name      string
		payload   string
		wantScore float64
		wantOK    bool
	}{
		{"fully correct", `{"selected":["a","c"]}`, 10, true},
		{"one hit one miss cancels out", `{"selected":["a","b"]}`, 0, false},
		{"partial credit", `{"selected":["a"]}`, 5, false},
		{"extra option breaks full credit", `{"selected":["a","c","b"]}`, 5, false},
		{"nothing selected", `{"selected":[]}`, 0, false},
		{"all wrong", `{"selected":["b","d"]}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Grade(Question{Type: model.QuestionMultiSelect, AnswerKey: key, Points: 10}, tt.payload)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if res.Score == nil || *res.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", res.Score, tt.wantScore)
			}
			if res.Correct != tt.wantOK {
				t.Errorf("correct = %v, want %v", res.Correct, tt.wantOK)
			}
		})
	}
}

func TestGradeMatching(t *testing.T) {
	key := `{"pairs":{"fr":"Paris","de":"Berlin","it":"Rome"}}`
	tests := []struct {
		name      string
		payload   string
		wantScore float64
		wantOK    bool
	}{
		{"all pairs", `{"pairs":{"fr":"Paris","de":"Berlin","it":"Rome"}}`, 9, true},
		{"two of three", `{"pairs":{"fr":"Paris","de":"Berlin","it":"Madrid"}}`, 6, false},
		{"none", `{"pairs":{"fr":"Rome","de":"Paris","it":"Berlin"}}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Grade(Question{Type: model.QuestionMatching, AnswerKey: key, Points: 9}, tt.payload)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if res.Score == nil || *res.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", res.Score, tt.wantScore)
			}
			if res.Correct != tt.wantOK {
				t.Errorf("correct = %v, want %v", res.Correct, tt.wantOK)
			}
		})
	}
}

func TestGradeShortAnswer(t *testing.T) {
	key := `{"text":"photosynthesis"}`
	tests := []struct {
		name      string
		payload   string
		threshold float64
		wantScore float64
	}{
		{"exact", `{"text":"photosynthesis"}`, 0, 5},
		{"case and punctuation ignored", `{"text":"Photosynthesis."}`, 0, 5},
		{"one typo passes default threshold", `{"text":"photosynthesys"}`, 0, 5},
		{"unrelated fails", `{"text":"respiration"}`, 0, 0},
		{"strict threshold rejects typo", `{"text":"photosynthesys"}`, 0.99, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Question{Type: model.QuestionShortAnswer, AnswerKey: key, Points: 5, SimilarityThreshold: tt.threshold}
			res, err := Grade(q, tt.payload)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if res.Score == nil || *res.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", res.Score, tt.wantScore)
			}
		})
	}
}

func TestGradeEssayRequiresManual(t *testing.T) {
	res, err := Grade(Question{Type: model.QuestionEssay, Points: 20}, `{"text":"my essay"}`)
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if !res.RequiresManual {
		t.Error("essay answer should require manual grading")
	}
	if res.Score != nil {
		t.Errorf("essay score should be unset, got %v", *res.Score)
	}
}

func TestGradeErrors(t *testing.T) {
	if _, err := Grade(Question{Type: "haiku", Points: 1}, `{}`); err == nil {
		t.Error("unknown question type should error")
	}
	if _, err := Grade(Question{Type: model.QuestionSingleChoice, AnswerKey: `{"selected":"A"}`, Points: 1}, `not json`); err == nil {
		t.Error("malformed payload should error")
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"", "abc"},
		{"same", "same"},
	}
	for _, p := range pairs {
		if similarity(p[0], p[1]) != similarity(p[1], p[0]) {
			t.Errorf("similarity(%q,%q) not symmetric", p[0], p[1])
		}
	}
}
