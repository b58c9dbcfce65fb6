package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"righthome/internal/config"
	"righthome/internal/logger"
)

// OpenAIClient talks to an OpenAI-compatible API (Gemini, OpenAI, NVIDIA).
// The HTTP client is created on first use and never torn down.
type OpenAIClient struct {
	config      config.ModelConfig
	logger      *logger.Logger
	chunkParser StreamChunkParser

	once       sync.Once
	httpClient *http.Client
}

// NewOpenAIClient creates a client and picks the stream chunk parser from the base URL
func NewOpenAIClient(cfg config.ModelConfig, log *logger.Logger) *OpenAIClient {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "model_gateway")

	parser, provider := DetectChunkParser(cfg.APIBase)
	log.Debug("model provider detected", "provider", provider, "base", cfg.APIBase, "model", cfg.ChatModel)

	return &OpenAIClient{
		config:      cfg,
		logger:      log,
		chunkParser: parser,
	}
}

// IsEnabled returns whether a credential is configured
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled()
}

// EmbeddingsEnabled reports whether listing/query embeddings may be requested
func (c *OpenAIClient) EmbeddingsEnabled() bool {
	return c.config.Enabled() && c.config.EmbeddingsEnabled
}

func (c *OpenAIClient) client() *http.Client {
	c.once.Do(func() {
		timeout := time.Duration(c.config.Timeout) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	})
	return c.httpClient
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ExtraBody      map[string]any  `json:"extra_body,omitempty"`
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
	ExtraBody      map[string]any `json:"extra_body,omitempty"`
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends prompt as a single user message and returns the reply text
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", gatewayError(ErrMalformed, 0, errors.New("no choices in response"))
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", gatewayError(ErrMalformed, 0, errors.New("empty content"))
	}
	return content, nil
}

// GenerateStream is Generate with incremental delivery of the reply text
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	var full strings.Builder
	err := c.ChatCompletionStream(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: prompt}},
	}, func(chunk *StreamChunk) error {
		if chunk.Content == "" {
			return nil
		}
		full.WriteString(chunk.Content)
		if onDelta != nil {
			return onDelta(chunk.Content)
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", gatewayError(ErrMalformed, 0, errors.New("empty stream"))
	}
	return full.String(), nil
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	c.applyDefaults(&req)
	req.Stream = false

	resp, err := c.post(ctx, "/chat/completions", req, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayError(ErrUnavailable, 0, fmt.Errorf("failed to read response: %w", err))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, gatewayError(ErrMalformed, 0, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	c.logger.Debug("chat completion finished",
		"model", result.Model,
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens)

	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	c.applyDefaults(&req)
	req.Stream = true

	resp, err := c.post(ctx, "/chat/completions", req, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return gatewayError(ErrUnavailable, 0, fmt.Errorf("failed to read stream: %w", err))
		}

		trimmed := bytes.TrimSpace(line)
		if data, ok := bytes.CutPrefix(trimmed, []byte("data:")); ok {
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, []byte("[DONE]")) {
				return nil
			}

			chunk, perr := c.chunkParser.ParseChunk(data)
			if perr != nil {
				c.logger.Warn("failed to parse stream chunk", "error", perr)
			} else if cerr := callback(chunk); cerr != nil {
				return fmt.Errorf("callback error: %w", cerr)
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// CreateEmbeddings creates embeddings for the given texts in configured batches
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batchSize := c.config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := c.createEmbeddingBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for batch %d: %w", i/batchSize, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)

		// small pause between batches to stay under provider rate limits
		if end < len(texts) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	return allEmbeddings, nil
}

// EmbedQuery embeds a single search text
func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, gatewayError(ErrMalformed, 0, errors.New("no embedding returned"))
	}
	return embeddings[0], nil
}

func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float",
		ExtraBody:      c.parseExtraBody("MODEL_EMBEDDING_EXTRA_BODY", c.config.EmbeddingExtraBody),
	}

	resp, err := c.post(ctx, "/embeddings", req, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayError(ErrUnavailable, 0, fmt.Errorf("failed to read response: %w", err))
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, gatewayError(ErrMalformed, 0, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	c.logger.Debug("embeddings created", "count", len(embeddings), "model", result.Model, "tokens", result.Usage.TotalTokens)
	return embeddings, nil
}

// post sends a JSON body and classifies transport and status failures.
// The caller owns the returned body.
func (c *OpenAIClient) post(ctx context.Context, path string, payload any, accept string) (*http.Response, error) {
	if !c.config.Enabled() {
		return nil, gatewayError(ErrUnconfigured, 0, nil)
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBase+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, gatewayError(ErrUnavailable, 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		kind := ErrUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = ErrRateLimited
		}
		return nil, gatewayError(kind, resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	return resp, nil
}

func (c *OpenAIClient) applyDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil {
		req.ExtraBody = c.parseExtraBody("MODEL_CHAT_EXTRA_BODY", c.config.ChatExtraBody)
	}
}

func (c *OpenAIClient) parseExtraBody(name, raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var extraBody map[string]any
	if err := json.Unmarshal([]byte(raw), &extraBody); err != nil {
		c.logger.Warn("ignoring invalid extra body", "setting", name, "error", err)
		return nil
	}
	return extraBody
}

var _ StreamingGateway = (*OpenAIClient)(nil)
