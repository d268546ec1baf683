package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/internal/dispatch"
)

// SendReplyTool sends an operator reply through the channel webhook
type SendReplyTool struct {
	deps Deps
}

// NewSendReplyTool creates a new send reply tool
func NewSendReplyTool(deps Deps) *SendReplyTool {
	return &SendReplyTool{deps: deps}
}

// Name returns the tool name
func (t *SendReplyTool) Name() string {
	return "send_reply"
}

// Description returns the tool description
func (t *SendReplyTool) Description() string {
	return "Reply to a conversation with text, an image, or both. The reply is posted once to the channel's webhook."
}

// InputSchema returns the JSON schema for tool inputs
func (t *SendReplyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"thread_id": map[string]interface{}{
				"type":        "string",
				"description": "Thread to reply to",
			},
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Optional: reply text",
			},
			"image_path": map[string]interface{}{
				"type":        "string",
				"description": "Optional: path to an image to attach",
			},
		},
		"required": []string{"thread_id"},
	}
}

// Execute executes the tool
func (t *SendReplyTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	threadID, err := requiredString(params, "thread_id")
	if err != nil {
		return nil, err
	}

	session := t.deps.Session
	conv, ok := session.Conversation(threadID)
	if !ok {
		return nil, fmt.Errorf("conversation not found: %s", threadID)
	}

	history, err := session.Thread(ctx, threadID)
	if err != nil {
		t.deps.Logger.WithError(err).WithField("thread_id", threadID).Warn("Sending without thread history")
		history = nil
	}

	payload, err := t.deps.Sender.Send(ctx, conv, history, dispatch.Reply{
		Text:      stringParam(params, "text"),
		ImagePath: stringParam(params, "image_path"),
	})
	if err != nil {
		return nil, err
	}

	// The backend writes the outbound row; pick it up on the next load.
	session.InvalidateThread(threadID)
	if err := session.Refresh(ctx); err != nil {
		t.deps.Logger.WithError(err).WithFields(logrus.Fields{"thread_id": threadID}).Warn("Refresh after send failed")
	}

	return map[string]interface{}{
		"success":     true,
		"id":          payload.ID,
		"thread_id":   payload.ThreadID,
		"channel":     payload.Channel,
		"uploaded_at": payload.UploadedAt,
		"has_image":   payload.AgentImageURL != "",
	}, nil
}
