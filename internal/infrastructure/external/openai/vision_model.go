// Package openai implements the vision model on the OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/evidence"
)

const unreadablePDF = "(PDF no legible)"

// ChatClient is the part of the OpenAI client the model uses
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the vision model
type Config struct {
	Model   string
	Prompts Prompts
}

// VisionModel implements port.VisionModel
type VisionModel struct {
	client     ChatClient
	rasterizer Rasterizer
	cfg        Config
	logger     *zap.Logger
}

// NewVisionModel creates a vision model on the OpenAI API
func NewVisionModel(apiKey string, cfg Config, rasterizer Rasterizer, logger *zap.Logger) *VisionModel {
	return NewVisionModelWithClient(openai.NewClient(apiKey), cfg, rasterizer, logger)
}

// NewVisionModelWithClient creates a vision model on the given client
func NewVisionModelWithClient(client ChatClient, cfg Config, rasterizer Rasterizer, logger *zap.Logger) *VisionModel {
	cfg.Prompts.Extraction = merge(DefaultPrompts().Extraction, cfg.Prompts.Extraction)
	cfg.Prompts.Synthesis = merge(DefaultPrompts().Synthesis, cfg.Prompts.Synthesis)
	return &VisionModel{
		client:     client,
		rasterizer: rasterizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// ExtractBatch sends every document of the batch in one request, each
// followed by its caption. PDFs go as their rendered pages.
func (m *VisionModel) ExtractBatch(ctx context.Context, batchNumber int, items []entity.EvidenceItem) (string, error) {
	parts := []openai.ChatMessagePart{textPart(evidence.BatchHeader(batchNumber, len(items)))}

	for i, item := range items {
		parts = append(parts, m.documentParts(item)...)
		parts = append(parts, textPart(evidence.FileCaption(i+1, item.Name, item.Folder)))
	}

	m.logger.Debug("Extracting evidence batch",
		zap.Int("batch", batchNumber),
		zap.Int("files", len(items)),
		zap.Int("parts", len(parts)))

	content, err := m.complete(ctx, m.request(m.cfg.Prompts.Extraction, parts))
	if err != nil {
		return "", fmt.Errorf("extract batch %d: %w", batchNumber, err)
	}
	return content, nil
}

// Synthesize asks for the final verdict over the closing context and every
// batch output
func (m *VisionModel) Synthesize(ctx context.Context, closingContext string, batchOutputs []string) (string, error) {
	var parts []openai.ChatMessagePart
	for _, text := range evidence.SynthesisParts(closingContext, batchOutputs) {
		parts = append(parts, textPart(text))
	}

	content, err := m.complete(ctx, m.request(m.cfg.Prompts.Synthesis, parts))
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	m.logger.Info("Synthesis completed",
		zap.Int("batches", len(batchOutputs)),
		zap.Int("response_length", len(content)))
	return content, nil
}

func (m *VisionModel) request(spec PromptSpec, parts []openai.ChatMessagePart) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       m.cfg.Model,
		MaxTokens:   spec.MaxTokens,
		Temperature: spec.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: spec.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
}

func (m *VisionModel) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		m.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *VisionModel) documentParts(item entity.EvidenceItem) []openai.ChatMessagePart {
	if item.MimeType != "application/pdf" {
		return []openai.ChatMessagePart{imagePart(item.MimeType, item.Base64)}
	}

	pages, err := m.pages(item)
	if err != nil {
		m.logger.Warn("Failed to render PDF evidence",
			zap.String("file", item.Name),
			zap.String("folder", item.Folder),
			zap.Error(err))
		return []openai.ChatMessagePart{textPart(unreadablePDF)}
	}

	parts := make([]openai.ChatMessagePart, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, imagePart("image/jpeg", base64.StdEncoding.EncodeToString(page)))
	}
	return parts
}

func (m *VisionModel) pages(item entity.EvidenceItem) ([][]byte, error) {
	if m.rasterizer == nil {
		return nil, fmt.Errorf("no PDF rasterizer configured")
	}
	raw, err := base64.StdEncoding.DecodeString(item.Base64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF: %w", err)
	}
	return m.rasterizer.Rasterize(raw)
}

func textPart(text string) openai.ChatMessagePart {
	return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text}
}

func imagePart(mimeType, data string) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, data),
			Detail: openai.ImageURLDetailHigh,
		},
	}
}

// Verify interface compliance
var _ port.VisionModel = (*VisionModel)(nil)
