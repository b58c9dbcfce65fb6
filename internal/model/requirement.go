package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Intent is the user's top-level goal
type Intent string

const (
	IntentBuy     Intent = "buy"
	IntentRent    Intent = "rent"
	IntentInvest  Intent = "invest"
	IntentInfo    Intent = "info"
	IntentUnknown Intent = "unknown"
)

// Recognized requirement field names
const (
	FieldIntent       = "intent"
	FieldPropertyType = "propertyType"
	FieldLocation     = "location"
	FieldBedrooms     = "bedrooms"
	FieldBathrooms    = "bathrooms"
	FieldPriceRange   = "priceRange"
	FieldCurrency     = "currency"
	FieldAmenities    = "amenities"
)

// Keys the model emits to steer the dialogue. They are never stored as requirements.
const (
	KeyStage        = "stage"
	KeyNextQuestion = "nextQuestion"
	KeyError        = "error"
)

var controlKeys = map[string]bool{
	KeyStage:        true,
	KeyNextQuestion: true,
	KeyError:        true,
}

// Slot names the requirement the dialogue asks for next, in priority order.
type Slot string

const (
	SlotPurpose      Slot = "purpose"
	SlotBudget       Slot = "budget"
	SlotLocation     Slot = "location"
	SlotPropertyType Slot = "propertyType"
	SlotBedrooms     Slot = "bedrooms"
)

// SlotPriority is the order in which missing requirements are asked for
var SlotPriority = []Slot{SlotPurpose, SlotBudget, SlotLocation, SlotPropertyType, SlotBedrooms}

// RequirementMap is the accumulated, partially populated search requirement.
// Field names follow the constants above; unknown keys are preserved.
type RequirementMap map[string]interface{}

// Clone returns a shallow copy. Values decoded from JSON are never mutated in place.
func (r RequirementMap) Clone() RequirementMap {
	out := make(RequirementMap, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new map where every non-null key of update overwrites the
// stored value. Absent and null keys leave the stored value untouched, so a
// model that re-emits a known field as null does not clear it. Control keys
// are dropped.
func (r RequirementMap) Merge(update map[string]interface{}) RequirementMap {
	merged := r.Clone()
	for k, v := range update {
		if v == nil || controlKeys[k] {
			continue
		}
		merged[k] = v
	}
	return merged
}

// Intent returns the classified intent, or IntentUnknown
func (r RequirementMap) Intent() Intent {
	s, ok := r[FieldIntent].(string)
	if !ok {
		return IntentUnknown
	}
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentBuy:
		return IntentBuy
	case IntentRent:
		return IntentRent
	case IntentInvest:
		return IntentInvest
	case IntentInfo:
		return IntentInfo
	default:
		return IntentUnknown
	}
}

// PropertyTypes returns the desired property categories
func (r RequirementMap) PropertyTypes() []string { return r.strings(FieldPropertyType) }

// Locations returns the desired city/area names
func (r RequirementMap) Locations() []string { return r.strings(FieldLocation) }

// Amenities returns the desired amenities
func (r RequirementMap) Amenities() []string { return r.strings(FieldAmenities) }

// Bedrooms returns the desired bedroom count
func (r RequirementMap) Bedrooms() *int { return r.integer(FieldBedrooms) }

// Bathrooms returns the desired bathroom count
func (r RequirementMap) Bathrooms() *int { return r.integer(FieldBathrooms) }

// PriceRange returns the budget bounds; either may be nil
func (r RequirementMap) PriceRange() (min, max *float64) {
	pr, ok := r[FieldPriceRange].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	return toFloat(pr["min"]), toFloat(pr["max"])
}

// Currency returns the upper-cased currency code, or ""
func (r RequirementMap) Currency() string {
	s, _ := r[FieldCurrency].(string)
	return strings.ToUpper(strings.TrimSpace(s))
}

// HasPurpose reports whether the intent is known
func (r RequirementMap) HasPurpose() bool { return r.Intent() != IntentUnknown }

// HasBudget reports whether at least one budget bound is known
func (r RequirementMap) HasBudget() bool {
	min, max := r.PriceRange()
	return min != nil || max != nil
}

// Has reports whether the given slot is filled
func (r RequirementMap) Has(slot Slot) bool {
	switch slot {
	case SlotPurpose:
		return r.HasPurpose()
	case SlotBudget:
		return r.HasBudget()
	case SlotLocation:
		return len(r.Locations()) > 0
	case SlotPropertyType:
		return len(r.PropertyTypes()) > 0
	case SlotBedrooms:
		return r.Bedrooms() != nil
	default:
		return false
	}
}

// MissingSlots returns the unfilled slots in SlotPriority order
func (r RequirementMap) MissingSlots() []Slot {
	var missing []Slot
	for _, slot := range SlotPriority {
		if !r.Has(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// ReadyForRecommendation reports whether location, property type and at least
// one of budget, bedrooms or purpose are known.
func (r RequirementMap) ReadyForRecommendation() bool {
	if !r.Has(SlotLocation) || !r.Has(SlotPropertyType) {
		return false
	}
	return r.HasBudget() || r.Bedrooms() != nil || r.HasPurpose()
}

// Summary renders the known requirements as a short human-readable line
func (r RequirementMap) Summary() string {
	var parts []string
	if r.HasPurpose() {
		parts = append(parts, "goal: "+string(r.Intent()))
	}
	if types := r.PropertyTypes(); len(types) > 0 {
		parts = append(parts, "type: "+strings.Join(types, "/"))
	}
	if locs := r.Locations(); len(locs) > 0 {
		parts = append(parts, "location: "+strings.Join(locs, ", "))
	}
	if beds := r.Bedrooms(); beds != nil {
		parts = append(parts, fmt.Sprintf("bedrooms: %d", *beds))
	}
	if baths := r.Bathrooms(); baths != nil {
		parts = append(parts, fmt.Sprintf("bathrooms: %d", *baths))
	}
	if min, max := r.PriceRange(); min != nil || max != nil {
		parts = append(parts, "budget: "+formatBudget(min, max, r.Currency()))
	}
	if amenities := r.Amenities(); len(amenities) > 0 {
		parts = append(parts, "amenities: "+strings.Join(amenities, ", "))
	}
	return strings.Join(parts, "; ")
}

// Value implements driver.Valuer interface
func (r RequirementMap) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner interface
func (r *RequirementMap) Scan(value interface{}) error {
	if value == nil {
		*r = RequirementMap{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported requirements type %T", value)
	}
	m := RequirementMap{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*r = m
	return nil
}

// strings accepts a JSON array of strings or a single string, dropping blanks.
func (r RequirementMap) strings(key string) []string {
	var out []string
	switch v := r[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// integer accepts a number, a numeric string, or a single-element array
// (some models wrap scalars in arrays).
func (r RequirementMap) integer(key string) *int {
	v := r[key]
	if arr, ok := v.([]interface{}); ok {
		if len(arr) == 0 {
			return nil
		}
		v = arr[0]
	}
	f := toFloat(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

func toFloat(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func formatBudget(min, max *float64, currency string) string {
	unit := ""
	if currency != "" {
		unit = " " + currency
	}
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%.0f-%.0f%s", *min, *max, unit)
	case max != nil:
		return fmt.Sprintf("up to %.0f%s", *max, unit)
	default:
		return fmt.Sprintf("from %.0f%s", *min, unit)
	}
}
