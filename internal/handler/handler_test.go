package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"righthome/internal/model"
	"righthome/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	err       error
	ids       []string
	utterance string
	events    []string
	reset     []string
}

func (f *fakeChat) HandleTurn(_ context.Context, id, utterance string) (*model.ChatResponse, error) {
	f.ids = append(f.ids, id)
	f.utterance = utterance
	if f.err != nil {
		return nil, f.err
	}
	return &model.ChatResponse{ConversationID: id, Message: "Hi there", Stage: 2, Intent: model.IntentBuy}, nil
}

func (f *fakeChat) HandleTurnStream(_ context.Context, id, utterance string, emit service.TurnEventCallback) (*model.ChatResponse, error) {
	f.ids = append(f.ids, id)
	if f.err != nil {
		return nil, f.err
	}
	for _, event := range f.events {
		if err := emit(event, map[string]string{"content": event}); err != nil {
			return nil, err
		}
	}
	return &model.ChatResponse{ConversationID: id}, nil
}

func (f *fakeChat) GetConversation(_ context.Context, id string) (*model.ConversationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.ConversationResponse{ConversationID: id, Stage: 3, Band: "gathering", MissingSlots: []model.Slot{}}, nil
}

func (f *fakeChat) ResetConversation(_ context.Context, id string) error {
	f.reset = append(f.reset, id)
	return f.err
}

func newChatRouter(chat ChatService) *gin.Engine {
	h := NewChatHandler(chat, nil)
	r := gin.New()
	r.Use(RequestLogger(nil))
	r.POST("/api/v1/chat", h.Chat)
	r.POST("/api/v1/chat/stream", h.ChatStream)
	r.GET("/api/v1/conversations/:id", h.GetConversation)
	r.DELETE("/api/v1/conversations/:id", h.ResetConversation)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat_ConversationIdentity(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"chat id wins", `{"message":"hi","userId":"u1","chatId":"c1"}`, "c1"},
		{"user id", `{"message":"hi","userId":"u1"}`, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{}
			w := postJSON(newChatRouter(chat), "/api/v1/chat", tt.body)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, []string{tt.want}, chat.ids)

			var resp model.ChatResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.ConversationID)
			assert.Equal(t, "Hi there", resp.Message)
		})
	}

	t.Run("minted when absent", func(t *testing.T) {
		chat := &fakeChat{}
		w := postJSON(newChatRouter(chat), "/api/v1/chat", `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, chat.ids, 1)
		_, err := uuid.Parse(chat.ids[0])
		assert.NoError(t, err)
	})
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"missing message", `{"userId":"u1"}`, nil, http.StatusBadRequest},
		{"blank message", `{"message":"   "}`, nil, http.StatusBadRequest},
		{"bad json", `{"message":`, nil, http.StatusBadRequest},
		{"unconfigured", `{"message":"hi"}`, fmt.Errorf("extract: %w", service.ErrUnconfigured), http.StatusServiceUnavailable},
		{"store down", `{"message":"hi"}`, errors.New("redis: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(newChatRouter(&fakeChat{err: tt.err}), "/api/v1/chat", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestChat_RequestIDHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	newChatRouter(&fakeChat{}).ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestChatStream_Events(t *testing.T) {
	chat := &fakeChat{events: []string{"requirements", "delta", "done"}}
	w := postJSON(newChatRouter(chat), "/api/v1/chat/stream", `{"message":"hi","chatId":"c9"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, "event: start\ndata: {\"conversationId\":\"c9\"}\n\n")
	start := strings.Index(body, "event: start")
	reqs := strings.Index(body, "event: requirements")
	delta := strings.Index(body, "event: delta")
	done := strings.Index(body, "event: done")
	assert.True(t, start < reqs && reqs < delta && delta < done, body)
	assert.NotContains(t, body, "event: error")
}

func TestChatStream_Unconfigured(t *testing.T) {
	w := postJSON(newChatRouter(&fakeChat{err: service.ErrUnconfigured}), "/api/v1/chat/stream", `{"message":"hi"}`)

	assert.Contains(t, w.Body.String(), "event: error")
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestConversationEndpoints(t *testing.T) {
	chat := &fakeChat{}
	r := newChatRouter(chat)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/c1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var conv model.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "c1", conv.ConversationID)
	assert.Equal(t, "gathering", conv.Band)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/c1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"c1"}, chat.reset)
}

type fakeProperties struct {
	query   *model.PropertyQuery
	listing *model.Listing
	err     error
}

func (f *fakeProperties) Search(_ context.Context, query *model.PropertyQuery) (*model.PropertySearchResponse, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return &model.PropertySearchResponse{Total: 1, Limit: 20}, nil
}

func (f *fakeProperties) GetProperty(_ context.Context, id int64) (*model.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.listing != nil && f.listing.ID == id {
		return f.listing, nil
	}
	return nil, nil
}

func newPropertyRouter(p PropertyService) *gin.Engine {
	h := NewPropertyHandler(p)
	r := gin.New()
	r.GET("/api/v1/properties", h.Search)
	r.GET("/api/v1/properties/:id", h.GetProperty)
	return r
}

func TestPropertySearch_BindsQuery(t *testing.T) {
	props := &fakeProperties{}
	w := httptest.NewRecorder()
	newPropertyRouter(props).ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/properties?bedrooms=3&bathrooms=2&minPrice=100&maxPrice=500&propertyType=Villa&location=Goa&limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, props.query)
	require.NotNil(t, props.query.Bedrooms)
	assert.Equal(t, 3, *props.query.Bedrooms)
	require.NotNil(t, props.query.MaxPrice)
	assert.Equal(t, 500.0, *props.query.MaxPrice)
	assert.Equal(t, "Villa", props.query.PropertyType)
	assert.Equal(t, "Goa", props.query.Location)
	assert.Equal(t, 5, props.query.Limit)
}

func TestPropertySearch_Errors(t *testing.T) {
	w := httptest.NewRecorder()
	newPropertyRouter(&fakeProperties{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/properties?bedrooms=many", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	newPropertyRouter(&fakeProperties{err: errors.New("db down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetProperty(t *testing.T) {
	r := newPropertyRouter(&fakeProperties{listing: &model.Listing{ID: 7, Address: "Baga Beach Road"}})

	tests := []struct {
		path   string
		status int
	}{
		{"/api/v1/properties/7", http.StatusOK},
		{"/api/v1/properties/8", http.StatusNotFound},
		{"/api/v1/properties/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
	}
}

type fakeUpdater struct {
	success int
	errs    []string
}

func (f *fakeUpdater) UpdateEmbeddings(_ context.Context, items []model.EmbeddingItem) (int, []string) {
	return f.success, f.errs
}

func TestEmbeddingBatchUpdate(t *testing.T) {
	tests := []struct {
		name    string
		updater *fakeUpdater
		body    string
		status  int
	}{
		{"ok", &fakeUpdater{success: 1}, `{"embeddings":[{"listing_id":1,"embedding":[0.1,0.2,0.3]}]}`, http.StatusOK},
		{"partial", &fakeUpdater{success: 1, errs: []string{"listing 2: missing"}},
			`{"embeddings":[{"listing_id":1,"embedding":[0.1,0.2,0.3]},{"listing_id":2,"embedding":[0.1,0.2,0.3]}]}`, http.StatusPartialContent},
		{"wrong dimension", &fakeUpdater{}, `{"embeddings":[{"listing_id":1,"embedding":[0.1]}]}`, http.StatusBadRequest},
		{"empty", &fakeUpdater{}, `{"embeddings":[]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEmbeddingHandler(tt.updater, 3)
			r := gin.New()
			r.POST("/api/v1/embeddings/batch", h.BatchUpdate)

			w := postJSON(r, "/api/v1/embeddings/batch", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

type fakeTranscriber struct {
	text     string
	err      error
	filename string
	audio    string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, filename string, audio io.Reader) (string, error) {
	f.filename = filename
	data, _ := io.ReadAll(audio)
	f.audio = string(data)
	return f.text, f.err
}

func audioUpload(t *testing.T, field string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "note.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/voice/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVoiceTranscribe(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		tr     *fakeTranscriber
		status int
	}{
		{"ok", "file", &fakeTranscriber{text: "2 BHK in Pune"}, http.StatusOK},
		{"missing file", "audio", &fakeTranscriber{}, http.StatusBadRequest},
		{"unconfigured", "file", &fakeTranscriber{err: service.ErrUnconfigured}, http.StatusServiceUnavailable},
		{"rate limited", "file", &fakeTranscriber{err: service.ErrRateLimited}, http.StatusTooManyRequests},
		{"upstream failure", "file", &fakeTranscriber{err: service.ErrUnavailable}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/api/v1/voice/transcribe", NewVoiceHandler(tt.tr).Transcribe)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, audioUpload(t, tt.field))
			assert.Equal(t, tt.status, w.Code)

			if tt.status == http.StatusOK {
				var resp model.TranscriptionResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "2 BHK in Pune", resp.Transcription)
				assert.Equal(t, "note.webm", tt.tr.filename)
				assert.Equal(t, "audio-bytes", tt.tr.audio)
			}
		})
	}
}
