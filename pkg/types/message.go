package types

import (
	"strings"
	"time"
)

// Channel identifies the source a message arrived from
type Channel string

const (
	ChannelWhatsApp   Channel = "whatsapp"
	ChannelGmail      Channel = "gmail"
	ChannelAmazon     Channel = "amazon"
	ChannelEbay       Channel = "ebay"
	ChannelTikTokShop Channel = "tiktok shop"
)

// AllChannels lists every known channel in display order
var AllChannels = []Channel{
	ChannelWhatsApp,
	ChannelGmail,
	ChannelAmazon,
	ChannelEbay,
	ChannelTikTokShop,
}

// Normalize returns the lower-cased channel name used for routing
func (c Channel) Normalize() Channel {
	return Channel(strings.ToLower(strings.TrimSpace(string(c))))
}

// Known reports whether the channel is one of AllChannels
func (c Channel) Known() bool {
	n := c.Normalize()
	for _, ch := range AllChannels {
		if n == ch {
			return true
		}
	}
	return false
}

// Status is the answered state of a message
type Status string

const (
	StatusNew      Status = "new"
	StatusAnswered Status = "answered"
)

// UserType is the role of the message author
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeAgent    UserType = "agent"
)

// Direction tells whether a message came in or went out
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one row of the normalized message table
type Message struct {
	ID               string    `json:"id"`
	Channel          Channel   `json:"channel"`
	ThreadID         string    `json:"thread_id"`
	MessageFrom      string    `json:"message_from"`
	MessageTo        string    `json:"message_to"`
	SenderName       string    `json:"sender_name"`
	UserType         UserType  `json:"user_type"`
	Direction        Direction `json:"direction"`
	UserMessage      *string   `json:"user_message"`
	FinalReply       *string   `json:"final_reply"`
	AIReply          *string   `json:"ai_reply"`
	Status           Status    `json:"status"`
	UploadedAt       time.Time `json:"uploaded_at"`
	CustomerImageURL *string   `json:"customer_image_url"`
	AgentImageURL    *string   `json:"agent_image_url"`
	EbayMessageID    *string   `json:"message_id_ebay,omitempty"`
	EbayItemID       *string   `json:"item_id_ebay,omitempty"`
}

// PreviewText returns the inbound text if present, else the reply text, else ""
func (m *Message) PreviewText() string {
	if s := deref(m.UserMessage); s != "" {
		return s
	}
	return deref(m.FinalReply)
}

// Content returns the text shown for the message given its direction
func (m *Message) Content() string {
	if m.Direction == DirectionOutbound {
		return deref(m.FinalReply)
	}
	return deref(m.UserMessage)
}

// ImageURL returns the customer image, falling back to the agent image
func (m *Message) ImageURL() string {
	if s := deref(m.CustomerImageURL); s != "" {
		return s
	}
	return deref(m.AgentImageURL)
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
