// Package llm wraps the OpenAI API behind the narrow gateway the engine
// consumes: text generation, embeddings and content moderation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the model used for agent reasoning and generation
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the model used for chunk and query embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected embedding width
	DefaultEmbeddingDimensions = 1536
	// DefaultMaxTokens bounds generation length when the caller does not
	DefaultMaxTokens = 2000
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected width
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when no OpenAI API key is configured
	ErrNoAPIKey = errors.New("OpenAI API key not configured")
)

// ModerationResult is the outcome of a moderation check
type ModerationResult struct {
	Flagged        bool
	Categories     map[string]bool
	CategoryScores map[string]float64
}

// API defines the provider calls the client depends on
type API interface {
	Complete(ctx context.Context, model, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error)
	CreateEmbedding(ctx context.Context, model, text string) ([]float32, error)
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}

// OpenAIAdapter implements API against the OpenAI client
type OpenAIAdapter struct {
	client *openai.Client
}

// NewOpenAIAdapter creates a new OpenAIAdapter
func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey)}
}

// Complete calls the chat completions endpoint
func (a *OpenAIAdapter) Complete(ctx context.Context, model, prompt, systemPrompt string, temperature float32, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateEmbedding calls the embeddings endpoint
func (a *OpenAIAdapter) CreateEmbedding(ctx context.Context, model, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// Moderate calls the moderations endpoint
func (a *OpenAIAdapter) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	resp, err := a.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: openai.ModerationOmniLatest,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("no moderation results returned")
	}

	r := resp.Results[0]
	return &ModerationResult{
		Flagged: r.Flagged,
		Categories: map[string]bool{
			"hate":             r.Categories.Hate,
			"hate/threatening": r.Categories.HateThreatening,
			"harassment":       r.Categories.Harassment,
			"self-harm":        r.Categories.SelfHarm,
			"sexual":           r.Categories.Sexual,
			"sexual/minors":    r.Categories.SexualMinors,
			"violence":         r.Categories.Violence,
			"violence/graphic": r.Categories.ViolenceGraphic,
		},
		CategoryScores: map[string]float64{
			"hate":             float64(r.CategoryScores.Hate),
			"hate/threatening": float64(r.CategoryScores.HateThreatening),
			"harassment":       float64(r.CategoryScores.Harassment),
			"self-harm":        float64(r.CategoryScores.SelfHarm),
			"sexual":           float64(r.CategoryScores.Sexual),
			"sexual/minors":    float64(r.CategoryScores.SexualMinors),
			"violence":         float64(r.CategoryScores.Violence),
			"violence/graphic": float64(r.CategoryScores.ViolenceGraphic),
		},
	}, nil
}

// Config holds client configuration
type Config struct {
	APIKey              string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	MaxTokens           int
	// ModerationKeywords is the fallback list consulted when the provider
	// moderation endpoint is unavailable.
	ModerationKeywords []string
}

// Client is the language-model gateway
type Client struct {
	api                API
	chatModel          string
	embeddingModel     string
	dimensions         int
	maxTokens          int
	moderationKeywords []string
	hasProvider        bool
}

// NewClient creates a new Client with the given configuration
func NewClient(cfg Config) *Client {
	var api API
	if cfg.APIKey != "" {
		api = NewOpenAIAdapter(cfg.APIKey)
	}
	return NewClientWithAPI(api, cfg)
}

// NewClientWithAPI creates a new Client over an explicit provider API.
// A nil api leaves only the keyword moderation path usable.
func NewClientWithAPI(api API, cfg Config) *Client {
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(DefaultEmbeddingModel)
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	keywords := make([]string, 0, len(cfg.ModerationKeywords))
	for _, kw := range cfg.ModerationKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return &Client{
		api:                api,
		chatModel:          chatModel,
		embeddingModel:     embeddingModel,
		dimensions:         dimensions,
		maxTokens:          maxTokens,
		moderationKeywords: keywords,
		hasProvider:        api != nil,
	}
}

// Generate produces a completion for the given prompt
func (c *Client) Generate(ctx context.Context, prompt, systemPrompt string, temperature float64) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}
	if !c.hasProvider {
		return "", ErrNoAPIKey
	}

	text, err := c.api.Complete(ctx, c.chatModel, prompt, systemPrompt, float32(temperature), c.maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	return text, nil
}

// Embed generates an embedding vector for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if !c.hasProvider {
		return nil, ErrNoAPIKey
	}

	embedding, err := c.api.CreateEmbedding(ctx, c.embeddingModel, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

// Dimensions returns the embedding width the client enforces
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Moderate checks text against the provider moderation endpoint, falling back
// to the configured keyword list when the provider is unavailable.
func (c *Client) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if c.hasProvider {
		result, err := c.api.Moderate(ctx, text)
		if err == nil {
			return result, nil
		}
	}

	return c.moderateByKeywords(text), nil
}

// moderateByKeywords flags text containing any configured keyword,
// case-insensitively.
func (c *Client) moderateByKeywords(text string) *ModerationResult {
	lowered := strings.ToLower(text)
	result := &ModerationResult{
		Categories:     map[string]bool{},
		CategoryScores: map[string]float64{},
	}

	for _, kw := range c.moderationKeywords {
		if strings.Contains(lowered, kw) {
			result.Flagged = true
			result.Categories["keyword:"+kw] = true
			result.CategoryScores["keyword:"+kw] = 1.0
		}
	}

	return result
}
