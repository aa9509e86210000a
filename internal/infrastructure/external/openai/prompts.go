package openai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/cierres-audit/internal/evidence"
)

const (
	// DefaultExtractTokens bounds one batch extraction answer
	DefaultExtractTokens = 4096
	// DefaultSynthesisTokens bounds the final verdict
	DefaultSynthesisTokens = 8192
)

// PromptSpec is the system prompt and sampling of one model call
type PromptSpec struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	System      string  `yaml:"system"`
}

// Prompts holds the prompts of both model calls
type Prompts struct {
	Extraction PromptSpec `yaml:"extraction"`
	Synthesis  PromptSpec `yaml:"synthesis"`
}

// DefaultPrompts returns the built-in Spanish prompts
func DefaultPrompts() Prompts {
	return Prompts{
		Extraction: PromptSpec{
			Temperature: 0.1,
			MaxTokens:   DefaultExtractTokens,
			System:      evidence.ExtractionPrompt,
		},
		Synthesis: PromptSpec{
			Temperature: 0.2,
			MaxTokens:   DefaultSynthesisTokens,
			System:      evidence.AuditorPrompt,
		},
	}
}

// LoadPrompts reads prompt overrides from a YAML file. Fields left out of the
// file keep their defaults.
func LoadPrompts(promptsPath string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return prompts, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return prompts, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	prompts.Extraction = merge(prompts.Extraction, overrides.Extraction)
	prompts.Synthesis = merge(prompts.Synthesis, overrides.Synthesis)
	return prompts, nil
}

func merge(base, override PromptSpec) PromptSpec {
	if override.Temperature > 0 {
		base.Temperature = override.Temperature
	}
	if override.MaxTokens > 0 {
		base.MaxTokens = override.MaxTokens
	}
	if override.System != "" {
		base.System = override.System
	}
	return base
}
