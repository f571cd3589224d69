package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/quinloq/examgate/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// FeedbackDraftService produces advisory feedback drafts for essay answers
// awaiting manual review. Drafts never affect scores; a human grader can use,
// edit, or discard them.
type FeedbackDraftService interface {
	Enabled() bool
	DraftFeedback(ctx context.Context, questionPrompt, answerText string) (string, error)
}

type geminiFeedbackService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewGeminiFeedbackService(cfg *config.Config) (FeedbackDraftService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. FeedbackDraftService will be non-functional.")
		return &geminiFeedbackService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	return &geminiFeedbackService{client: model, cfg: cfg}, nil
}

func (s *geminiFeedbackService) Enabled() bool {
	return s.client != nil
}

func (s *geminiFeedbackService) DraftFeedback(ctx context.Context, questionPrompt, answerText string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are an experienced exam grader helping a colleague review an essay answer.\n")
	promptBuilder.WriteString("Write a short feedback draft (at most 5 sentences) the grader can start from.\n")
	promptBuilder.WriteString("Mention strong points first, then concrete weaknesses. Do NOT assign a score.\n\n")
	promptBuilder.WriteString("Essay Question:\n---\n")
	promptBuilder.WriteString(questionPrompt)
	promptBuilder.WriteString("\n---\n\nStudent's Answer:\n---\n")
	promptBuilder.WriteString(answerText)
	promptBuilder.WriteString("\n---\n")

	resp, err := s.client.GenerateContent(ctx, genai.Text(promptBuilder.String()))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during feedback drafting")
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Warn().Msg("Gemini returned no candidates or parts in response.")
		return "", fmt.Errorf("gemini returned no content")
	}

	fullResponseText := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullResponseText += string(txt)
		}
	}
	if fullResponseText == "" {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return strings.TrimSpace(fullResponseText), nil
}
