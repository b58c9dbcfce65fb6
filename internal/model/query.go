package model

// ChatRequest is one user utterance sent to the chat endpoint
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  string `json:"userId,omitempty"`
	ChatID  string `json:"chatId,omitempty"`
}

// ChatResponse is the reply for one turn
type ChatResponse struct {
	ConversationID string                `json:"conversationId"`
	Message        string                `json:"message"`
	Stage          int                   `json:"stage"`
	Intent         Intent                `json:"intent"`
	NextQuestion   string                `json:"nextQuestion,omitempty"`
	Requirements   RequirementMap        `json:"requirements"`
	Properties     []ListingSearchResult `json:"properties,omitempty"`
	Suggestions    []Suggestion          `json:"suggestions,omitempty"`
	Degraded       bool                  `json:"degraded,omitempty"`
	Took           int64                 `json:"took_ms"`
}

// Suggestion is a quick reply: Text is shown, Message is sent when chosen
type Suggestion struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

// ConversationResponse exposes the stored state of one conversation
type ConversationResponse struct {
	ConversationID string         `json:"conversationId"`
	Stage          int            `json:"stage"`
	Band           string         `json:"band"`
	Requirements   RequirementMap `json:"requirements"`
	MissingSlots   []Slot         `json:"missingSlots"`
}

// PropertyFilters represents structured property search filters
type PropertyFilters struct {
	PropertyTypes []string `json:"propertyTypes,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	Bedrooms      *int     `json:"bedrooms,omitempty"`
	BathroomsMin  *float64 `json:"bathroomsMin,omitempty"`
	PriceMin      *float64 `json:"priceMin,omitempty"`
	PriceMax      *float64 `json:"priceMax,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
}

// PropertyQuery is the query-string form of a property search
type PropertyQuery struct {
	Bedrooms     *int     `form:"bedrooms"`
	Bathrooms    *float64 `form:"bathrooms"`
	MinPrice     *float64 `form:"minPrice"`
	MaxPrice     *float64 `form:"maxPrice"`
	PropertyType string   `form:"propertyType"`
	Location     string   `form:"location"`
	Limit        int      `form:"limit"`
	Offset       int      `form:"offset"`
}

// PropertySearchResponse is a paginated property search result
type PropertySearchResponse struct {
	Results []ListingSearchResult `json:"results"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
	HasMore bool                  `json:"has_more"`
	Took    int64                 `json:"took_ms"`
}

// TranscriptionResponse carries the text recognized from an audio upload
type TranscriptionResponse struct {
	Transcription string `json:"transcription"`
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem represents a single embedding with listing info
type EmbeddingItem struct {
	ListingID int64     `json:"listing_id" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
	Text      string    `json:"text,omitempty"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
