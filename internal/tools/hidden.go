package tools

import (
	"context"
	"fmt"

	"github.com/brandon/unified-inbox/internal/inbox"
)

// HideThreadsTool hides threads from the default view
type HideThreadsTool struct {
	deps Deps
}

// NewHideThreadsTool creates a new hide threads tool
func NewHideThreadsTool(deps Deps) *HideThreadsTool {
	return &HideThreadsTool{deps: deps}
}

// Name returns the tool name
func (t *HideThreadsTool) Name() string {
	return "hide_threads"
}

// Description returns the tool description
func (t *HideThreadsTool) Description() string {
	return "Hide threads from the conversation list. Hiding an already hidden thread is a no-op."
}

// InputSchema returns the JSON schema for tool inputs
func (t *HideThreadsTool) InputSchema() map[string]interface{} {
	return threadIDsSchema()
}

// Execute executes the tool
func (t *HideThreadsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	ids, err := threadIDs(params)
	if err != nil {
		return nil, err
	}
	registry := t.deps.Session.Registry()
	if err := registry.Hide(ctx, ids); err != nil {
		return nil, err
	}
	return map[string]interface{}{"hidden": registry.Hidden()}, nil
}

// ShowThreadsTool un-hides threads
type ShowThreadsTool struct {
	deps Deps
}

// NewShowThreadsTool creates a new show threads tool
func NewShowThreadsTool(deps Deps) *ShowThreadsTool {
	return &ShowThreadsTool{deps: deps}
}

// Name returns the tool name
func (t *ShowThreadsTool) Name() string {
	return "show_threads"
}

// Description returns the tool description
func (t *ShowThreadsTool) Description() string {
	return "Un-hide threads so they appear in the conversation list again"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ShowThreadsTool) InputSchema() map[string]interface{} {
	return threadIDsSchema()
}

// Execute executes the tool
func (t *ShowThreadsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	ids, err := threadIDs(params)
	if err != nil {
		return nil, err
	}
	registry := t.deps.Session.Registry()
	if err := registry.Show(ctx, ids); err != nil {
		return nil, err
	}
	return map[string]interface{}{"hidden": registry.Hidden()}, nil
}

func threadIDsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"thread_ids": stringArraySchema("Thread ids"),
		},
		"required": []string{"thread_ids"},
	}
}

func threadIDs(params map[string]interface{}) ([]string, error) {
	ids := stringList(params, "thread_ids")
	if len(ids) == 0 {
		return nil, fmt.Errorf("thread_ids is required")
	}
	return ids, nil
}

// Edit actions
const (
	editBegin  = "begin"
	editToggle = "toggle"
	editCommit = "commit"
	editCancel = "cancel"
	editStatus = "status"
)

// EditHiddenTool drives a bulk edit of the hidden set. The selection starts
// as the current hidden set and nothing is persisted until commit.
type EditHiddenTool struct {
	deps Deps
}

// NewEditHiddenTool creates a new edit hidden tool
func NewEditHiddenTool(deps Deps) *EditHiddenTool {
	return &EditHiddenTool{deps: deps}
}

// Name returns the tool name
func (t *EditHiddenTool) Name() string {
	return "edit_hidden"
}

// Description returns the tool description
func (t *EditHiddenTool) Description() string {
	return "Bulk-edit hidden threads: begin a selection, toggle threads in it, then commit or cancel"
}

// InputSchema returns the JSON schema for tool inputs
func (t *EditHiddenTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type": "string",
				"enum": []string{editBegin, editToggle, editCommit, editCancel, editStatus},
			},
			"thread_ids": stringArraySchema("Threads to toggle (toggle only)"),
		},
		"required": []string{"action"},
	}
}

// Execute executes the tool
func (t *EditHiddenTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	action, err := requiredString(params, "action")
	if err != nil {
		return nil, err
	}
	registry := t.deps.Session.Registry()

	switch action {
	case editBegin:
		if err := registry.BeginEdit(); err != nil {
			return nil, err
		}
	case editToggle:
		ids, err := threadIDs(params)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, err := registry.ToggleSelection(id); err != nil {
				return nil, err
			}
		}
	case editCommit:
		delta, err := registry.CommitEdit(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"editing": false,
			"hidden":  registry.Hidden(),
			"hide":    emptyIfNil(delta.Hide),
			"show":    emptyIfNil(delta.Show),
		}, nil
	case editCancel:
		registry.CancelEdit()
		return map[string]interface{}{"editing": false, "hidden": registry.Hidden()}, nil
	case editStatus:
		if !registry.Editing() {
			return map[string]interface{}{"editing": false, "hidden": registry.Hidden()}, nil
		}
	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}

	return t.selectionResult(registry)
}

func (t *EditHiddenTool) selectionResult(registry *inbox.Registry) (interface{}, error) {
	selection, err := registry.Selection()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"editing":   true,
		"selection": selection,
		"hidden":    registry.Hidden(),
	}, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
