package dispatch

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brandon/unified-inbox/pkg/types"
)

// uploadedAtLayout matches what the backend writes for its own rows
const uploadedAtLayout = "2006-01-02T15:04:05.000Z"

// Payload is the JSON body posted to a channel webhook
type Payload struct {
	ID            string          `json:"id"`
	Channel       types.Channel   `json:"channel"`
	ThreadID      string          `json:"thread_id"`
	MessageFrom   string          `json:"message_from"`
	MessageTo     string          `json:"message_to"`
	SenderName    string          `json:"sender_name"`
	UserType      types.UserType  `json:"user_type"`
	Direction     types.Direction `json:"direction"`
	Status        types.Status    `json:"status"`
	FinalReply    *string         `json:"final_reply"`
	UploadedAt    string          `json:"uploaded_at"`
	AgentImageURL string          `json:"agent_image_url,omitempty"`
	EbayMessageID string          `json:"message_id_ebay,omitempty"`
	EbayItemID    string          `json:"item_id_ebay,omitempty"`
}

// BuildPayload assembles the outbound record for a reply.
//
// history is the thread oldest first. The record reuses the id of the newest
// message, or a fresh UUID when the thread has none. For eBay the two
// correlation ids are copied from the newest messages that carry them.
func BuildPayload(conv types.Conversation, history []types.Message, text, imageDataURI string, now time.Time) Payload {
	id := ""
	if len(history) > 0 {
		id = history[len(history)-1].ID
	}
	if id == "" {
		id = uuid.NewString()
	}

	p := Payload{
		ID:            id,
		Channel:       conv.Channel,
		ThreadID:      conv.ThreadID,
		MessageFrom:   conv.MessageFrom,
		MessageTo:     conv.MessageTo,
		SenderName:    conv.SenderName,
		UserType:      types.UserTypeAgent,
		Direction:     types.DirectionOutbound,
		Status:        types.StatusAnswered,
		FinalReply:    types.StringPtr(strings.TrimSpace(text)),
		UploadedAt:    now.UTC().Format(uploadedAtLayout),
		AgentImageURL: imageDataURI,
	}

	if conv.Channel.Normalize() == types.ChannelEbay {
		p.EbayMessageID = newest(history, func(m *types.Message) *string { return m.EbayMessageID })
		p.EbayItemID = newest(history, func(m *types.Message) *string { return m.EbayItemID })
	}

	return p
}

func newest(history []types.Message, field func(*types.Message) *string) string {
	for i := len(history) - 1; i >= 0; i-- {
		if v := field(&history[i]); v != nil && *v != "" {
			return *v
		}
	}
	return ""
}
