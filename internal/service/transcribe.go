package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"righthome/internal/config"
)

// Transcriber converts recorded speech to text
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// WhisperClient calls an OpenAI-compatible /audio/transcriptions endpoint
type WhisperClient struct {
	config config.TranscriptionConfig

	once       sync.Once
	httpClient *http.Client
}

// NewWhisperClient creates a transcription client
func NewWhisperClient(cfg config.TranscriptionConfig) *WhisperClient {
	return &WhisperClient{config: cfg}
}

// IsEnabled returns whether a credential is configured
func (c *WhisperClient) IsEnabled() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

func (c *WhisperClient) client() *http.Client {
	c.once.Do(func() {
		timeout := time.Duration(c.config.Timeout) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	})
	return c.httpClient
}

// Transcribe uploads audio and returns the recognized text
func (c *WhisperClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if !c.IsEnabled() {
		return "", gatewayError(ErrUnconfigured, 0, errors.New("transcription key missing"))
	}
	if filename == "" {
		filename = "audio.webm"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if err := writer.WriteField("model", c.config.Model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBase+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return "", gatewayError(ErrUnavailable, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", gatewayError(ErrUnavailable, 0, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ErrUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = ErrRateLimited
		}
		return "", gatewayError(kind, resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", gatewayError(ErrMalformed, 0, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return strings.TrimSpace(result.Text), nil
}

var _ Transcriber = (*WhisperClient)(nil)
