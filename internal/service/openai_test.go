package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"righthome/internal/config"
	"righthome/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(config.ModelConfig{
		APIKey:         "test-key",
		APIBase:        srv.URL,
		ChatModel:      "gemini-2.0-flash",
		EmbeddingModel: "text-embedding-004",
		BatchSize:      2,
		Timeout:        5,
	}, logger.Nop())
}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"model": "gemini-2.0-flash",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func TestOpenAIClient_Generate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gemini-2.0-flash", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		fmt.Fprint(w, completionBody(`{"intent":"buy"}`))
	})

	out, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"buy"}`, out)
}

func TestOpenAIClient_Unconfigured(t *testing.T) {
	client := NewOpenAIClient(config.ModelConfig{APIBase: "http://127.0.0.1:1"}, nil)

	_, err := client.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnconfigured)
	assert.False(t, client.IsEnabled())
	assert.Nil(t, client.httpClient, "no client is created before a configured call")
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"quota"}`, ErrRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, ErrUnavailable},
		{"unauthorized", http.StatusUnauthorized, `bad key`, ErrUnavailable},
		{"bad json", http.StatusOK, `not json`, ErrMalformed},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrMalformed},
		{"empty content", http.StatusOK, completionBody("   "), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := client.Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var gwErr *GatewayError
			require.True(t, errors.As(err, &gwErr))
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, gwErr.StatusCode)
			}
		})
	}
}

func TestOpenAIClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewOpenAIClient(config.ModelConfig{APIKey: "k", APIBase: base, Timeout: 1}, logger.Nop())
	_, err := client.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "unavailable", FailureKind(err))
}

func TestOpenAIClient_HonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Generate(ctx, "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOpenAIClient_LazyHTTPClient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("ok"))
	})
	assert.Nil(t, client.httpClient)

	_, err := client.Generate(context.Background(), "a")
	require.NoError(t, err)
	first := client.httpClient
	require.NotNil(t, first)

	_, err = client.Generate(context.Background(), "b")
	require.NoError(t, err)
	assert.Same(t, first, client.httpClient)
}

func TestOpenAIClient_GenerateStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"there\"},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	full, err := client.GenerateStream(context.Background(), "hi", func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", full)
	assert.Equal(t, []string{"Hello ", "there"}, deltas)
}

func TestOpenAIClient_GenerateStreamEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	_, err := client.GenerateStream(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOpenAIClient_CreateEmbeddings(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		// reversed order to check index-based placement
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"index": i, "embedding": []float32{float32(len(req.Input[i]))}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "model": req.Model})
	})

	out, err := client.CreateEmbeddings(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "batch size 2 splits three texts into two calls")
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, out)
}

func TestDetectChunkParser(t *testing.T) {
	tests := []struct {
		base     string
		provider string
	}{
		{"https://integrate.api.nvidia.com/v1", "nvidia"},
		{"https://generativelanguage.googleapis.com/v1beta/openai", "gemini"},
		{"https://api.openai.com/v1", "openai"},
		{"http://localhost:11434/v1", "openai-compatible"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			_, provider := DetectChunkParser(tt.base)
			assert.Equal(t, tt.provider, provider)
		})
	}
}

func TestReasoningStreamChunkParser(t *testing.T) {
	chunk, err := (&ReasoningStreamChunkParser{}).ParseChunk(
		[]byte(`{"choices":[{"delta":{"content":"x","reasoning_content":"thinking"},"finish_reason":null}]}`))
	require.NoError(t, err)
	assert.Equal(t, "x", chunk.Content)
	assert.Equal(t, "thinking", chunk.ThinkingContent)
	assert.False(t, chunk.Done)
}
