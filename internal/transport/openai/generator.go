package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

const (
	fastSystemPrompt = "You are the fast acknowledgment track of a voice assistant. " +
		"Reply with one short spoken sentence confirming you are working on the request. " +
		"Do not answer the request itself."

	slowSystemPrompt = "You are a voice assistant. Answer the request directly and " +
		"concisely in plain spoken language. No markdown, no code fences."

	// progressChunk is how many streamed runes accumulate between progress events.
	progressChunk = 160
)

// GeneratorConfig holds the chat backend settings shared by both tracks.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

func newChatClient(cfg *GeneratorConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// FastGenerator produces a single short acknowledgment via one non-streaming
// chat completion. It implements domain.Generator for the fast track.
type FastGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewFastGenerator creates the fast-track chat backend.
func NewFastGenerator(cfg *GeneratorConfig) *FastGenerator {
	return &FastGenerator{
		client: newChatClient(cfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Generate implements domain.Generator. Emits exactly one ack event on success.
func (g *FastGenerator) Generate(ctx context.Context, text string, emit func(domain.GenEvent)) error {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fastSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return parseGenError("fast", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("fast track: empty completion: %w", domain.ErrGeneratorFailure)
	}

	ack := strings.TrimSpace(resp.Choices[0].Message.Content)
	if ack == "" {
		return fmt.Errorf("fast track: blank completion: %w", domain.ErrGeneratorFailure)
	}

	emit(domain.GenEvent{Type: domain.EventAck, Text: ack})
	return nil
}

// SlowGenerator streams the full answer via a chat completion stream. It
// implements domain.Generator for the slow track: intermediate content surfaces
// as progress previews, the accumulated answer as the final event.
type SlowGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewSlowGenerator creates the slow-track chat backend.
func NewSlowGenerator(cfg *GeneratorConfig) *SlowGenerator {
	return &SlowGenerator{
		client: newChatClient(cfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Generate implements domain.Generator. The stream must end cleanly for the
// final event to fire; a mid-stream error keeps already-emitted progress events
// but produces no final.
func (g *SlowGenerator) Generate(ctx context.Context, text string, emit func(domain.GenEvent)) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: slowSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Stream: true,
	})
	if err != nil {
		return parseGenError("slow", err)
	}
	defer stream.Close()

	var full strings.Builder
	lastProgress := 0

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return parseGenError("slow", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		full.WriteString(chunk.Choices[0].Delta.Content)

		if full.Len()-lastProgress >= progressChunk {
			lastProgress = full.Len()
			emit(domain.GenEvent{
				Type: domain.EventProgress,
				Text: progressPreview(full.String()),
			})
		}
	}

	answer := strings.TrimSpace(full.String())
	if answer == "" {
		return fmt.Errorf("slow track: empty stream: %w", domain.ErrGeneratorFailure)
	}

	emit(domain.GenEvent{Type: domain.EventFinal, Text: answer})
	return nil
}

// progressPreview trims a partial answer to its last whole word so progress
// events never end mid-token.
func progressPreview(partial string) string {
	partial = strings.TrimSpace(partial)
	if idx := strings.LastIndexByte(partial, ' '); idx > 0 {
		partial = partial[:idx]
	}
	return partial + "…"
}

// parseGenError extracts a readable error from the chat API response. All
// errors wrap domain.ErrGeneratorFailure so the orchestrator can classify the
// track failure.
func parseGenError(track string, err error) error {
	wrap := domain.ErrGeneratorFailure

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s track: chat API error %d: %s: %w",
			track, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s track: chat API error %d: %s: %w",
			track, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s track: chat request failed: %w", track, wrap)
}
