package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() map[string]any {
	return map[string]any{
		"version": "v1",
		"type":    "TASK",
		"intent":  "create",
		"subject": "Ship report",
	}
}

func TestValidateMeaning_Valid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "minimal payload", mutate: func(map[string]any) {}},
		{name: "with description", mutate: func(p map[string]any) { p["description"] = "Quarterly numbers" }},
		{name: "with constraints", mutate: func(p map[string]any) {
			p["constraints"] = map[string]any{"due": "2026-11-01", "amount": 42.0}
		}},
		{name: "human provenance", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "human"}
		}},
		{name: "ai provenance with confidence", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "ai", "confidence": 0.87}
		}},
		{name: "confidence at upper bound", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "ai", "confidence": 1}
		}},
		{name: "explicit null description", mutate: func(p map[string]any) { p["description"] = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)

			m, err := ValidateMeaning(p)
			require.NoError(t, err)
			assert.Equal(t, MeaningVersion, m.Version)
			assert.Equal(t, MeaningTask, m.Type)
			assert.Equal(t, "create", m.Intent)
			assert.Equal(t, "Ship report", m.Subject)
		})
	}
}

func TestValidateMeaning_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{name: "missing subject", mutate: func(p map[string]any) { delete(p, "subject") }, wantField: "subject"},
		{name: "blank subject", mutate: func(p map[string]any) { p["subject"] = "  " }, wantField: "subject"},
		{name: "missing intent", mutate: func(p map[string]any) { delete(p, "intent") }, wantField: "intent"},
		{name: "intent not a string", mutate: func(p map[string]any) { p["intent"] = 3 }, wantField: "intent"},
		{name: "unsupported version", mutate: func(p map[string]any) { p["version"] = "v2" }, wantField: "version"},
		{name: "missing version", mutate: func(p map[string]any) { delete(p, "version") }, wantField: "version"},
		{name: "unknown type", mutate: func(p map[string]any) { p["type"] = "RECIPE" }, wantField: "type"},
		{name: "lowercase type", mutate: func(p map[string]any) { p["type"] = "task" }, wantField: "type"},
		{name: "description wrong type", mutate: func(p map[string]any) { p["description"] = []any{"x"} }, wantField: "description"},
		{name: "constraints not an object", mutate: func(p map[string]any) { p["constraints"] = "soon" }, wantField: "constraints"},
		{name: "metadata not an object", mutate: func(p map[string]any) { p["metadata"] = "ai" }, wantField: "metadata"},
		{name: "unknown provenance", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "robot"}
		}, wantField: "metadata.created_from"},
		{name: "confidence out of range", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "ai", "confidence": 1.5}
		}, wantField: "metadata.confidence"},
		{name: "confidence is NaN", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "ai", "confidence": math.NaN()}
		}, wantField: "metadata.confidence"},
		{name: "confidence not a number", mutate: func(p map[string]any) {
			p["metadata"] = map[string]any{"created_from": "ai", "confidence": "high"}
		}, wantField: "metadata.confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)

			m, err := ValidateMeaning(p)
			assert.Nil(t, m)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMeaning)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has(tt.wantField), "issues: %v", verr.Issues)
		})
	}
}

func TestValidateMeaning_ReportsEveryField(t *testing.T) {
	_, err := ValidateMeaning(map[string]any{"version": "v9", "type": "X"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"version", "type", "intent", "subject"} {
		assert.True(t, verr.Has(field), "expected issue for %s", field)
	}
	assert.Len(t, verr.Issues, 4)
}

func TestValidateMeaning_PayloadShapes(t *testing.T) {
	raw, err := json.Marshal(validPayload())
	require.NoError(t, err)

	for name, payload := range map[string]any{
		"bytes":       raw,
		"raw message": json.RawMessage(raw),
		"string":      string(raw),
		"struct":      Meaning{Version: "v1", Type: MeaningGoal, Intent: "plan", Subject: "Run 10k"},
		"pointer":     &Meaning{Version: "v1", Type: MeaningNote, Intent: "discuss", Subject: "Retro"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateMeaning(payload)
			assert.NoError(t, err)
		})
	}

	for name, payload := range map[string]any{
		"nil":         nil,
		"nil pointer": (*Meaning)(nil),
		"array json":  []byte(`[1,2]`),
		"null json":   "null",
		"garbage":     "{not json",
		"number":      42,
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ValidateMeaning(payload)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has("$"))
		})
	}
}

func TestValidateMeaning_PassesConstraintsThrough(t *testing.T) {
	constraints := map[string]any{"participants": []any{"ana", "bo"}}
	p := validPayload()
	p["constraints"] = constraints

	m, err := ValidateMeaning(p)
	require.NoError(t, err)

	constraints["late"] = true
	assert.Equal(t, true, m.Constraints["late"], "constraints must be the caller's map")
}
