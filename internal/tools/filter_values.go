package tools

import (
	"context"

	"github.com/brandon/unified-inbox/internal/store"
)

// FilterValuesTool lists the distinct values each filter can take
type FilterValuesTool struct {
	deps Deps
}

// NewFilterValuesTool creates a new filter values tool
func NewFilterValuesTool(deps Deps) *FilterValuesTool {
	return &FilterValuesTool{deps: deps}
}

// Name returns the tool name
func (t *FilterValuesTool) Name() string {
	return "list_filter_values"
}

// Description returns the tool description
func (t *FilterValuesTool) Description() string {
	return "List the distinct channels, thread ids and recipient addresses available for filtering"
}

// InputSchema returns the JSON schema for tool inputs
func (t *FilterValuesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"field": map[string]interface{}{
				"type":        "string",
				"enum":        []string{string(store.FieldChannel), string(store.FieldThreadID), string(store.FieldMessageTo)},
				"description": "Optional: a single field. All three are returned when omitted.",
			},
		},
	}
}

// Execute executes the tool
func (t *FilterValuesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	fields := []store.Field{store.FieldChannel, store.FieldThreadID, store.FieldMessageTo}
	if name := stringParam(params, "field"); name != "" {
		field, err := store.ParseField(name)
		if err != nil {
			return nil, err
		}
		fields = []store.Field{field}
	}

	result := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		values, err := t.deps.Store.DistinctValues(ctx, field)
		if err != nil {
			t.deps.Logger.WithError(err).WithField("field", field).Warn("Failed to load filter values")
			values = []string{}
		}
		result[string(field)] = values
	}
	return result, nil
}
