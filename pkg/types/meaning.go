package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MeaningVersion is the only meaning schema version accepted by ValidateMeaning.
// Later versions must be additive; unknown versions are rejected.
const MeaningVersion = "v1"

// MeaningType is the closed set of content categories.
type MeaningType string

// Meaning types.
const (
	MeaningTask    MeaningType = "TASK"
	MeaningGoal    MeaningType = "GOAL"
	MeaningIdea    MeaningType = "IDEA"
	MeaningMessage MeaningType = "MESSAGE"
	MeaningPlan    MeaningType = "PLAN"
	MeaningNote    MeaningType = "NOTE"
)

var validMeaningTypes = map[MeaningType]bool{
	MeaningTask:    true,
	MeaningGoal:    true,
	MeaningIdea:    true,
	MeaningMessage: true,
	MeaningPlan:    true,
	MeaningNote:    true,
}

// Valid reports whether t is one of the known meaning types.
func (t MeaningType) Valid() bool {
	return validMeaningTypes[t]
}

// Provenance values for MeaningMetadata.CreatedFrom.
const (
	CreatedFromHuman = "human"
	CreatedFromAI    = "ai"
)

// MeaningMetadata records where a meaning came from.
type MeaningMetadata struct {
	CreatedFrom string   `json:"created_from"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// Meaning is the canonical, language-neutral representation of one piece of
// content. It is the payload stored in a meaning object's meaning_json.
type Meaning struct {
	Version     string           `json:"version"`
	Type        MeaningType      `json:"type"`
	Intent      string           `json:"intent"`
	Subject     string           `json:"subject"`
	Description string           `json:"description,omitempty"`
	Constraints map[string]any   `json:"constraints,omitempty"`
	Metadata    *MeaningMetadata `json:"metadata,omitempty"`
}

// MeaningRecord is a persisted meaning object owned by one workspace.
type MeaningRecord struct {
	ID           string      `json:"id"`
	WorkspaceID  string      `json:"workspace_id"`
	CreatedBy    string      `json:"created_by"`
	EntityType   MeaningType `json:"entity_type"`
	SourceLocale string      `json:"source_locale"`
	Meaning      Meaning     `json:"meaning_json"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Meaning errors.
var (
	ErrInvalidMeaning = errors.New("invalid meaning payload")
	ErrNotFound       = errors.New("entity not found")
	ErrInvalidID      = errors.New("invalid entity ID")
)

// FieldIssue names one violated field of a meaning payload.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Issues []FieldIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalidMeaning, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidMeaning }

// Has reports whether field is among the violated fields.
func (e *ValidationError) Has(field string) bool {
	for _, is := range e.Issues {
		if is.Field == field {
			return true
		}
	}
	return false
}

// ValidateMeaning checks an untrusted payload against the meaning schema.
// The payload may be a decoded JSON object (map[string]any), raw JSON
// ([]byte, json.RawMessage, string), or a Meaning. On failure the returned
// *ValidationError names every violated field, not only the first.
func ValidateMeaning(payload any) (*Meaning, error) {
	obj, err := meaningObject(payload)
	if err != nil {
		return nil, &ValidationError{Issues: []FieldIssue{{Field: "$", Message: err.Error()}}}
	}

	var issues []FieldIssue
	add := func(field, format string, args ...any) {
		issues = append(issues, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	m := &Meaning{}

	switch v := obj["version"].(type) {
	case string:
		if v != MeaningVersion {
			add("version", "unsupported version %q", v)
		}
		m.Version = v
	case nil:
		add("version", "required")
	default:
		add("version", "must be a string")
	}

	switch v := obj["type"].(type) {
	case string:
		if !MeaningType(v).Valid() {
			add("type", "unknown type %q", v)
		}
		m.Type = MeaningType(v)
	case nil:
		add("type", "required")
	default:
		add("type", "must be a string")
	}

	m.Intent = requiredString(obj, "intent", add)
	m.Subject = requiredString(obj, "subject", add)

	if raw, ok := obj["description"]; ok && raw != nil {
		if s, ok := raw.(string); ok {
			m.Description = s
		} else {
			add("description", "must be a string")
		}
	}

	if raw, ok := obj["constraints"]; ok && raw != nil {
		if c, ok := raw.(map[string]any); ok {
			m.Constraints = c
		} else {
			add("constraints", "must be an object")
		}
	}

	if raw, ok := obj["metadata"]; ok && raw != nil {
		md, ok := raw.(map[string]any)
		if !ok {
			add("metadata", "must be an object")
		} else {
			m.Metadata = validateMetadata(md, add)
		}
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return m, nil
}

func requiredString(obj map[string]any, field string, add func(string, string, ...any)) string {
	switch v := obj[field].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			add(field, "must not be empty")
		}
		return v
	case nil:
		add(field, "required")
	default:
		add(field, "must be a string")
	}
	return ""
}

func validateMetadata(md map[string]any, add func(string, string, ...any)) *MeaningMetadata {
	out := &MeaningMetadata{}
	switch v := md["created_from"].(type) {
	case string:
		if v != CreatedFromHuman && v != CreatedFromAI {
			add("metadata.created_from", "unknown provenance %q", v)
		}
		out.CreatedFrom = v
	case nil:
		add("metadata.created_from", "required")
	default:
		add("metadata.created_from", "must be a string")
	}

	if raw, ok := md["confidence"]; ok && raw != nil {
		f, ok := toFloat(raw)
		switch {
		case !ok:
			add("metadata.confidence", "must be a number")
		case math.IsNaN(f) || f < 0 || f > 1:
			add("metadata.confidence", "must be within [0,1], got %v", f)
		default:
			out.Confidence = &f
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// meaningObject normalizes the accepted payload shapes to a JSON object.
func meaningObject(payload any) (map[string]any, error) {
	switch p := payload.(type) {
	case map[string]any:
		return p, nil
	case []byte:
		return decodeObject(p)
	case json.RawMessage:
		return decodeObject(p)
	case string:
		return decodeObject([]byte(p))
	case Meaning:
		return meaningToObject(&p)
	case *Meaning:
		if p == nil {
			return nil, errors.New("payload is nil")
		}
		return meaningToObject(p)
	case nil:
		return nil, errors.New("payload is nil")
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}

func decodeObject(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if obj == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return obj, nil
}

func meaningToObject(m *Meaning) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	// Keep the caller's constraints map rather than its JSON round-trip.
	if m.Constraints != nil {
		obj["constraints"] = m.Constraints
	}
	return obj, nil
}
