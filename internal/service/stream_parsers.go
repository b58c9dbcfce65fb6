package service

import (
	"encoding/json"
	"strings"
)

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	Content string
	// Reasoning text some providers stream separately from the answer
	ThinkingContent string
	Role            string
	Done            bool
}

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

type streamDelta struct {
	Role             string  `json:"role,omitempty"`
	Content          string  `json:"content,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type rawStreamChunk struct {
	Choices []struct {
		Delta        streamDelta `json:"delta"`
		FinishReason *string     `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

func decodeStreamChunk(data []byte) (*rawStreamChunk, *StreamChunk, error) {
	var raw rawStreamChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		choice := raw.Choices[0]
		chunk.Role = choice.Delta.Role
		chunk.Content = choice.Delta.Content
		chunk.Done = choice.FinishReason != nil && *choice.FinishReason != ""
	}
	return &raw, chunk, nil
}

// OpenAIStreamChunkParser parses standard OpenAI-format chunks. Gemini's
// OpenAI-compatible endpoint uses the same shape.
type OpenAIStreamChunkParser struct{}

func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	_, chunk, err := decodeStreamChunk(data)
	return chunk, err
}

// ReasoningStreamChunkParser also extracts reasoning_content (NVIDIA/DeepSeek)
type ReasoningStreamChunkParser struct{}

func (p *ReasoningStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	raw, chunk, err := decodeStreamChunk(data)
	if err != nil {
		return nil, err
	}
	if len(raw.Choices) > 0 && raw.Choices[0].Delta.ReasoningContent != nil {
		chunk.ThinkingContent = *raw.Choices[0].Delta.ReasoningContent
	}
	return chunk, nil
}

// DetectChunkParser picks a parser from the API base URL and names the provider
func DetectChunkParser(baseURL string) (StreamChunkParser, string) {
	switch {
	case strings.Contains(baseURL, "integrate.api.nvidia.com"):
		return &ReasoningStreamChunkParser{}, "nvidia"
	case strings.Contains(baseURL, "generativelanguage.googleapis.com"):
		return &OpenAIStreamChunkParser{}, "gemini"
	case strings.Contains(baseURL, "api.openai.com"):
		return &OpenAIStreamChunkParser{}, "openai"
	default:
		return &OpenAIStreamChunkParser{}, "openai-compatible"
	}
}
