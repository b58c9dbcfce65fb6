package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Listing represents a property listing
type Listing struct {
	ID           int64      `json:"id" db:"id"`
	Address      string     `json:"address" db:"address"`
	City         *string    `json:"city,omitempty" db:"city"`
	Locality     *string    `json:"locality,omitempty" db:"locality"`
	PropertyType string     `json:"propertyType" db:"property_type"`
	Price        float64    `json:"price" db:"price"`
	Currency     string     `json:"currency" db:"currency"`
	Bedrooms     int        `json:"bedrooms" db:"bedrooms"`
	Bathrooms    float64    `json:"bathrooms" db:"bathrooms"`
	SquareFeet   *float64   `json:"squareFeet,omitempty" db:"square_feet"`
	YearBuilt    *int       `json:"yearBuilt,omitempty" db:"year_built"`
	Amenities    JSONArray  `json:"amenities" db:"amenities"`
	Description  string     `json:"description" db:"description"`
	Images       JSONArray  `json:"images" db:"images"`
	Latitude     *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" db:"longitude"`
	ListedAt     *time.Time `json:"listedAt,omitempty" db:"listed_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// ListingSearchResult is a candidate listing with its ranking metadata
type ListingSearchResult struct {
	Listing
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matchedReasons"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported array type %T", value)
	}
}
