package qna

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/config"
)

// UnavailableAnswer is returned with zero token usage when no model is
// configured. The request still succeeds and counts against quota.
const UnavailableAnswer = "AI is currently unavailable. Please try again later."

// ErrTimeout means the model did not answer within the deadline. Callers
// map it separately from other generation failures.
var ErrTimeout = errors.New("answer generation timed out")

const fallbackSystemPrompt = "You are an NFL expert assistant. " +
	"Answer using only the game briefing when one is provided. " +
	"If the briefing does not cover the question, say you don't have that information. " +
	"Keep answers short and factual."

type GeneratedAnswer struct {
	Answer       string
	InputTokens  int
	OutputTokens int
}

// Fallback answers questions the pattern router could not, via a chat
// completion grounded on the game briefing.
type Fallback struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewFallback(cfg config.OpenAIConfig, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fallback{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if cfg.APIKey == "" {
		logger.Warn("fallback: no openai api key configured, answers degrade to unavailable notice")
		return f
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	f.client = openai.NewClientWithConfig(oc)
	return f
}

// Generate produces an answer within the configured deadline. maxTokens
// caps the completion, briefing may be empty.
func (f *Fallback) Generate(ctx context.Context, question, briefing string, maxTokens int) (GeneratedAnswer, error) {
	if f.client == nil {
		return GeneratedAnswer{Answer: UnavailableAnswer}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: fallbackSystemPrompt},
	}
	if briefing != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Game briefing:\n" + briefing,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     f.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return GeneratedAnswer{}, ErrTimeout
		}
		return GeneratedAnswer{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return GeneratedAnswer{}, fmt.Errorf("chat completion: empty response")
	}

	return GeneratedAnswer{
		Answer:       resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
