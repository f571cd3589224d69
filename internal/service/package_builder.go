package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/model"
)

// PackageBuilder assembles the question package a student downloads. Correct
// answers never enter the DTO, so the checksum covers exactly what the client
// receives.
type PackageBuilder interface {
	Build(session *model.ExamSession, attempt *model.Attempt) (*dto.PackageResponse, error)
}

type packageBuilder struct{}

func NewPackageBuilder() PackageBuilder {
	return &packageBuilder{}
}

func (b *packageBuilder) Build(session *model.ExamSession, attempt *model.Attempt) (*dto.PackageResponse, error) {
	questions := make([]dto.PackageQuestionDTO, 0, len(session.Questions))
	for _, q := range session.Questions {
		var opts json.RawMessage
		if q.Options != "" {
			opts = json.RawMessage(q.Options)
		}
		questions = append(questions, dto.PackageQuestionDTO{
			ID:       q.ID,
			Type:     string(q.Type),
			Prompt:   q.Prompt,
			Options:  opts,
			Points:   q.EffectivePoints(),
			Position: q.Position,
		})
	}

	if session.ShuffleQuestions {
		// Seeded by attempt id: a retried download returns the same order the
		// student already saw.
		rng := rand.New(rand.NewSource(int64(attempt.ID)))
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
		for i := range questions {
			questions[i].Position = i + 1
		}
	}

	checksum, err := packageChecksum(questions)
	if err != nil {
		return nil, fmt.Errorf("compute package checksum: %w", err)
	}

	return &dto.PackageResponse{
		AttemptID:       attempt.ID,
		SessionID:       session.ID,
		Title:           session.Title,
		DurationMinutes: session.DurationMinutes,
		PassingPercent:  session.PassingPercent,
		Questions:       questions,
		Checksum:        checksum,
		ExpiresAt:       session.EndsAt,
	}, nil
}

func packageChecksum(questions []dto.PackageQuestionDTO) (string, error) {
	raw, err := json.Marshal(questions)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
