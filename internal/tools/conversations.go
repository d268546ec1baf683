package tools

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/brandon/unified-inbox/pkg/types"
)

// ListConversationsTool lists the aggregated inbox
type ListConversationsTool struct {
	deps Deps
	now  func() time.Time
}

// NewListConversationsTool creates a new list conversations tool
func NewListConversationsTool(deps Deps) *ListConversationsTool {
	return &ListConversationsTool{deps: deps, now: time.Now}
}

// Name returns the tool name
func (t *ListConversationsTool) Name() string {
	return "list_conversations"
}

// Description returns the tool description
func (t *ListConversationsTool) Description() string {
	return "List conversations across all channels, newest unanswered first. Filters are applied in the store; query is a case-insensitive match on sender, thread id, sender address and channel."
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListConversationsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"channels":   stringArraySchema("Optional: only these channels. Passing any filter replaces all filters."),
			"thread_ids": stringArraySchema("Optional: only these thread ids"),
			"message_to": stringArraySchema("Optional: only messages sent to these addresses"),
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Optional: free-text search. Pass an empty string to clear.",
			},
			"include_hidden": map[string]interface{}{
				"type":        "boolean",
				"description": "Optional: include hidden threads (selection mode)",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Result limit (default: SEARCH_RESULT_LIMIT)",
				"minimum":     1,
			},
		},
	}
}

// Execute executes the tool
func (t *ListConversationsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	session := t.deps.Session

	if hasAny(params, "channels", "thread_ids", "message_to") {
		filters := types.FilterOptions{
			ThreadIDs: stringList(params, "thread_ids"),
			MessageTo: stringList(params, "message_to"),
		}
		for _, ch := range stringList(params, "channels") {
			filters.Channels = append(filters.Channels, types.Channel(ch))
		}
		if err := session.SetFilters(ctx, filters); err != nil {
			t.deps.Logger.WithError(err).Warn("Conversation refresh failed")
		}
	}
	if _, ok := params["query"]; ok {
		session.SetQuery(stringParam(params, "query"))
	}

	selectionMode := boolParam(params, "include_hidden")
	visible := session.Visible(selectionMode)

	limit := intParam(params, "limit", t.deps.Config.SearchResultLimit)
	total := len(visible)
	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}

	registry := session.Registry()
	now := t.now()
	list := make([]map[string]interface{}, len(visible))
	unread := 0
	for i := range visible {
		c := &visible[i]
		unread += c.UnreadCount
		list[i] = map[string]interface{}{
			"thread_id":         c.ThreadID,
			"sender_name":       c.SenderName,
			"channel":           c.Channel,
			"message_from":      c.MessageFrom,
			"message_to":        c.MessageTo,
			"status":            c.Status,
			"last_message":      c.LastMessage,
			"last_message_time": c.LastMessageTime,
			"last_message_ago":  humanize.RelTime(c.LastMessageTime, now, "ago", "from now"),
			"unread_count":      c.UnreadCount,
			"hidden":            registry.IsHidden(c.ThreadID),
		}
	}

	return map[string]interface{}{
		"conversations": list,
		"count":         len(list),
		"total":         total,
		"unread":        unread,
		"query":         session.Query(),
		"filters":       session.Filters(),
		"editing":       registry.Editing(),
	}, nil
}

func hasAny(params map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := params[k]; ok {
			return true
		}
	}
	return false
}

// GetThreadTool returns a thread's full history
type GetThreadTool struct {
	deps Deps
}

// NewGetThreadTool creates a new get thread tool
func NewGetThreadTool(deps Deps) *GetThreadTool {
	return &GetThreadTool{deps: deps}
}

// Name returns the tool name
func (t *GetThreadTool) Name() string {
	return "get_thread"
}

// Description returns the tool description
func (t *GetThreadTool) Description() string {
	return "Get every message of a thread, oldest first"
}

// InputSchema returns the JSON schema for tool inputs
func (t *GetThreadTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"thread_id": map[string]interface{}{
				"type":        "string",
				"description": "Thread id",
			},
		},
		"required": []string{"thread_id"},
	}
}

// Execute executes the tool
func (t *GetThreadTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	threadID, err := requiredString(params, "thread_id")
	if err != nil {
		return nil, err
	}

	messages, err := t.deps.Session.Thread(ctx, threadID)
	if err != nil {
		t.deps.Logger.WithError(err).WithField("thread_id", threadID).Warn("Failed to load thread")
		messages = nil
	}

	list := make([]map[string]interface{}, len(messages))
	for i := range messages {
		m := &messages[i]
		entry := map[string]interface{}{
			"id":          m.ID,
			"direction":   m.Direction,
			"user_type":   m.UserType,
			"sender_name": m.SenderName,
			"content":     m.Content(),
			"status":      m.Status,
			"uploaded_at": m.UploadedAt,
		}
		if img := m.ImageURL(); img != "" {
			entry["image_url"] = img
		}
		list[i] = entry
	}

	result := map[string]interface{}{
		"thread_id": threadID,
		"messages":  list,
		"count":     len(list),
	}
	if conv, ok := t.deps.Session.Conversation(threadID); ok {
		result["conversation"] = conv
	}
	return result, nil
}

// SuggestedReplyTool returns the newest AI suggestion for a thread
type SuggestedReplyTool struct {
	deps Deps
}

// NewSuggestedReplyTool creates a new suggested reply tool
func NewSuggestedReplyTool(deps Deps) *SuggestedReplyTool {
	return &SuggestedReplyTool{deps: deps}
}

// Name returns the tool name
func (t *SuggestedReplyTool) Name() string {
	return "get_suggested_reply"
}

// Description returns the tool description
func (t *SuggestedReplyTool) Description() string {
	return "Get the latest AI-suggested reply for a thread, if any"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SuggestedReplyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"thread_id": map[string]interface{}{
				"type":        "string",
				"description": "Thread id",
			},
		},
		"required": []string{"thread_id"},
	}
}

// Execute executes the tool
func (t *SuggestedReplyTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	threadID, err := requiredString(params, "thread_id")
	if err != nil {
		return nil, err
	}

	reply, found, err := t.deps.Store.LatestSuggestedReply(ctx, threadID)
	if err != nil {
		t.deps.Logger.WithError(err).WithField("thread_id", threadID).Warn("Failed to load suggested reply")
		reply, found = "", false
	}

	return map[string]interface{}{
		"thread_id": threadID,
		"found":     found,
		"reply":     reply,
	}, nil
}

// RefreshTool reloads the hidden set and the conversation list now
type RefreshTool struct {
	deps Deps
}

// NewRefreshTool creates a new refresh tool
func NewRefreshTool(deps Deps) *RefreshTool {
	return &RefreshTool{deps: deps}
}

// Name returns the tool name
func (t *RefreshTool) Name() string {
	return "refresh"
}

// Description returns the tool description
func (t *RefreshTool) Description() string {
	return "Reload hidden threads and conversations from the store without waiting for the next poll"
}

// InputSchema returns the JSON schema for tool inputs
func (t *RefreshTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *RefreshTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	session := t.deps.Session
	result := map[string]interface{}{}

	if err := session.RefreshHidden(ctx); err != nil {
		t.deps.Logger.WithError(err).Warn("Hidden thread refresh failed")
		result["hidden_error"] = err.Error()
	}
	if err := session.Refresh(ctx); err != nil {
		t.deps.Logger.WithError(err).Warn("Conversation refresh failed")
		result["error"] = err.Error()
	}

	conversations := session.Conversations()
	result["conversations"] = len(conversations)
	result["hidden"] = len(session.Registry().Hidden())
	result["unread"] = unreadTotal(conversations)
	return result, nil
}

func unreadTotal(conversations []types.Conversation) int {
	n := 0
	for i := range conversations {
		n += conversations[i].UnreadCount
	}
	return n
}
