package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second

	// DefaultMaxExamplesInPrompt caps how many voice examples are sent to pattern extraction
	DefaultMaxExamplesInPrompt = 20
	// MaxExampleCharsInPrompt caps the characters of any single example in the prompt
	MaxExampleCharsInPrompt = 4000

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the AIProvider interface using OpenAI's API
type OpenAIProvider struct {
	client              openai.Client
	model               string
	maxExamplesInPrompt int
	logger              *zap.Logger
	debugMode           bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:              client,
		model:               model,
		maxExamplesInPrompt: DefaultMaxExamplesInPrompt,
		logger:              logger,
		debugMode:           debugMode,
	}
}

// NewOpenAIProviderWithConfig creates a new OpenAI provider with custom configuration
func NewOpenAIProviderWithConfig(apiKey string, baseURL string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, baseURL, model, nil, false)
}

// PolishScript rewrites rawScript in the voice described by patterns
func (p *OpenAIProvider) PolishScript(ctx context.Context, rawScript string, patterns json.RawMessage) (string, error) {
	prompt := buildPolishPrompt(rawScript, patterns)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a script editor that rewrites rough drafts into polished scripts while preserving the author's personal voice. Respond with the polished script only, no commentary."),
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "polish_script"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "polish_script"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to polish script: %w", apiErr)
		}
		return "", fmt.Errorf("failed to polish script: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}
	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "polish_script"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// ExtractPatterns derives a pattern artifact from the given example corpus
func (p *OpenAIProvider) ExtractPatterns(ctx context.Context, examples []*models.StyleExample) (json.RawMessage, error) {
	prompt := p.buildExtractionPrompt(examples)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a writing analyst that studies a set of scripts by one author and describes their voice as structured data. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "extract_patterns"),
			zap.String("model", p.model),
			zap.Int("example_count", len(examples)),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "extract_patterns"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to extract patterns: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to extract patterns: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}
	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "extract_patterns"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	patterns, err := parsePatternsResponse(content)
	if err != nil {
		return nil, err
	}
	return patterns, nil
}

// parsePatternsResponse validates that the response body is a JSON object,
// recovering from models that wrap the JSON in prose
func parsePatternsResponse(content string) (json.RawMessage, error) {
	raw := content
	if !json.Valid([]byte(raw)) {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("failed to parse patterns response: invalid JSON")
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse patterns response: %w", err)
	}

	return json.RawMessage(raw), nil
}

// buildPolishPrompt builds the prompt for script polishing
func buildPolishPrompt(rawScript string, patterns json.RawMessage) string {
	prompt := "Rewrite the following rough script into a polished script.\n\n"
	prompt += "The author's voice profile, extracted from their own past scripts, is:\n"
	prompt += string(patterns)
	prompt += "\n\nMatch that voice: sentence rhythm, vocabulary, tone, and structural habits. "
	prompt += "Fix grammar, tighten wording, and improve flow, but do not change the meaning or add new content.\n\n"
	prompt += "Rough script:\n"
	prompt += rawScript
	prompt += "\n\nReturn only the polished script text."
	return prompt
}

// buildExtractionPrompt builds the prompt for voice pattern extraction
func (p *OpenAIProvider) buildExtractionPrompt(examples []*models.StyleExample) string {
	maxExamples := p.maxExamplesInPrompt
	if maxExamples == 0 {
		maxExamples = DefaultMaxExamplesInPrompt
	}
	if len(examples) > maxExamples {
		// Most recent examples carry the most signal
		examples = examples[len(examples)-maxExamples:]
	}

	prompt := fmt.Sprintf("Analyze the following %d scripts, all written or hand-corrected by the same author, and describe the author's voice.\n", len(examples))

	for i, example := range examples {
		text := example.Text
		if len(text) > MaxExampleCharsInPrompt {
			text = text[:MaxExampleCharsInPrompt]
		}
		prompt += fmt.Sprintf("\n--- Script %d (quality score %d, %d words) ---\n%s\n", i+1, example.QualityScore, example.WordCount, text)
	}

	prompt += `
Respond with a JSON object in this format:
{
  "tone": "description of overall tone",
  "sentence_style": "description of sentence length, rhythm, and structure",
  "vocabulary": ["characteristic words and phrases"],
  "openings": "how the author tends to open",
  "closings": "how the author tends to close",
  "quirks": ["recurring habits worth preserving"]
}

Guidelines:
- Describe what this author actually does, not generic writing advice
- Higher quality scores mean the script is closer to the author's intended voice
- Return only valid JSON.`

	return prompt
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (AIProvider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		model := config["model"]
		baseURL := config["base_url"]

		return NewOpenAIProviderWithConfig(apiKey, baseURL, model), nil
	})
}
