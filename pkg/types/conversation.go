package types

import "time"

// Conversation is derived from all messages sharing a thread id
type Conversation struct {
	ThreadID        string    `json:"thread_id"`
	SenderName      string    `json:"sender_name"`
	Channel         Channel   `json:"channel"`
	MessageFrom     string    `json:"message_from"`
	MessageTo       string    `json:"message_to"`
	Status          Status    `json:"status"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

// FilterOptions restricts which messages are read from the store.
// An empty list leaves that dimension unrestricted.
type FilterOptions struct {
	Channels  []Channel `json:"channels"`
	ThreadIDs []string  `json:"thread_ids"`
	MessageTo []string  `json:"message_to"`
}

// IsEmpty reports whether no dimension is restricted
func (f FilterOptions) IsEmpty() bool {
	return len(f.Channels) == 0 && len(f.ThreadIDs) == 0 && len(f.MessageTo) == 0
}

// Match applies the same membership rules the store applies in SQL
func (f FilterOptions) Match(m *Message) bool {
	if len(f.Channels) > 0 && !containsChannel(f.Channels, m.Channel) {
		return false
	}
	if len(f.ThreadIDs) > 0 && !containsString(f.ThreadIDs, m.ThreadID) {
		return false
	}
	if len(f.MessageTo) > 0 && !containsString(f.MessageTo, m.MessageTo) {
		return false
	}
	return true
}

func containsChannel(list []Channel, c Channel) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ThreadStamp identifies the state of a whole thread regardless of any
// filter: how many messages it holds and when the newest one arrived.
type ThreadStamp struct {
	Count           int       `json:"count"`
	LastMessageTime time.Time `json:"last_message_time"`
}

// Equal reports whether two stamps describe the same thread state
func (s ThreadStamp) Equal(o ThreadStamp) bool {
	return s.Count == o.Count && s.LastMessageTime.Equal(o.LastMessageTime)
}
