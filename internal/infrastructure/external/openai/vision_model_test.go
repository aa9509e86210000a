package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/domain/entity"
	"github.com/garyjia/cierres-audit/internal/evidence"
)

type mockChatClient struct {
	requests []openai.ChatCompletionRequest
	content  string
	err      error
	empty    bool
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if m.empty {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: m.content}}},
	}, nil
}

type mockRasterizer struct {
	pages [][]byte
	err   error
}

func (m *mockRasterizer) Rasterize(pdf []byte) ([][]byte, error) {
	return m.pages, m.err
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestVisionModel_ExtractBatch(t *testing.T) {
	client := &mockChatClient{content: "GASTO|hielo.jpg|15000"}
	rasterizer := &mockRasterizer{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	model := NewVisionModelWithClient(client, Config{Model: "gpt-4o"}, rasterizer, zap.NewNop())

	items := []entity.EvidenceItem{
		{Name: "hielo.jpg", Folder: entity.FolderExpenses, MimeType: "image/jpeg", Base64: b64("jpg")},
		{Name: "extracto.pdf", Folder: entity.FolderBank, MimeType: "application/pdf", Base64: b64("%PDF")},
	}

	out, err := model.ExtractBatch(context.Background(), 3, items)

	require.NoError(t, err)
	assert.Equal(t, "GASTO|hielo.jpg|15000", out)
	require.Len(t, client.requests, 1)

	req := client.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, DefaultExtractTokens, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, evidence.ExtractionPrompt, req.Messages[0].Content)

	parts := req.Messages[1].MultiContent
	require.Len(t, parts, 6)
	assert.Equal(t, evidence.BatchHeader(3, 2), parts[0].Text)
	assert.Equal(t, "data:image/jpeg;base64,"+b64("jpg"), parts[1].ImageURL.URL)
	assert.Equal(t, evidence.FileCaption(1, "hielo.jpg", entity.FolderExpenses), parts[2].Text)
	assert.Equal(t, "data:image/jpeg;base64,"+b64("p1"), parts[3].ImageURL.URL)
	assert.Equal(t, "data:image/jpeg;base64,"+b64("p2"), parts[4].ImageURL.URL)
	assert.Equal(t, evidence.FileCaption(2, "extracto.pdf", entity.FolderBank), parts[5].Text)
}

func TestVisionModel_ExtractBatch_UnreadablePDF(t *testing.T) {
	client := &mockChatClient{content: "ok"}
	model := NewVisionModelWithClient(client, Config{}, &mockRasterizer{err: errors.New("broken xref")}, zap.NewNop())

	_, err := model.ExtractBatch(context.Background(), 1, []entity.EvidenceItem{
		{Name: "roto.pdf", Folder: entity.FolderOther, MimeType: "application/pdf", Base64: b64("x")},
	})

	require.NoError(t, err)
	parts := client.requests[0].Messages[1].MultiContent
	require.Len(t, parts, 3)
	assert.Equal(t, unreadablePDF, parts[1].Text)
}

func TestVisionModel_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *mockChatClient
	}{
		{name: "api error", client: &mockChatClient{err: errors.New("429 rate limit")}},
		{name: "no choices", client: &mockChatClient{empty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewVisionModelWithClient(tt.client, Config{}, nil, zap.NewNop())

			_, err := model.ExtractBatch(context.Background(), 1, nil)
			assert.Error(t, err)

			_, err = model.Synthesize(context.Background(), "ctx", nil)
			assert.Error(t, err)
		})
	}
}

func TestVisionModel_Synthesize(t *testing.T) {
	client := &mockChatClient{content: `{"veredicto": "CUADRA"}`}
	model := NewVisionModelWithClient(client, Config{Model: "gpt-4o"}, nil, zap.NewNop())

	out, err := model.Synthesize(context.Background(), "CIERRE", []string{"lote 1", "lote 2"})

	require.NoError(t, err)
	assert.Equal(t, `{"veredicto": "CUADRA"}`, out)

	req := client.requests[0]
	assert.Equal(t, DefaultSynthesisTokens, req.MaxTokens)
	assert.Equal(t, evidence.AuditorPrompt, req.Messages[0].Content)

	var texts []string
	for _, p := range req.Messages[1].MultiContent {
		assert.Equal(t, openai.ChatMessagePartTypeText, p.Type)
		texts = append(texts, p.Text)
	}
	assert.Equal(t, evidence.SynthesisParts("CIERRE", []string{"lote 1", "lote 2"}), texts)
	assert.True(t, strings.Contains(texts[1], "--- SIGUIENTE LOTE ---"))
}

func TestLoadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `
extraction:
  max_tokens: 2048
synthesis:
  temperature: 0.5
  system: "Eres un auditor estricto."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	prompts, err := LoadPrompts(path)

	require.NoError(t, err)
	assert.Equal(t, 2048, prompts.Extraction.MaxTokens)
	assert.Equal(t, evidence.ExtractionPrompt, prompts.Extraction.System)
	assert.Equal(t, float32(0.5), prompts.Synthesis.Temperature)
	assert.Equal(t, DefaultSynthesisTokens, prompts.Synthesis.MaxTokens)
	assert.Equal(t, "Eres un auditor estricto.", prompts.Synthesis.System)
}

func TestLoadPrompts_Errors(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction: [unclosed"), 0o644))
	_, err = LoadPrompts(path)
	assert.Error(t, err)
}

func TestPDFRasterizer_RejectsGarbage(t *testing.T) {
	_, err := NewPDFRasterizer(0).Rasterize([]byte("not a pdf"))
	assert.Error(t, err)
}
