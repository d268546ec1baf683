package inbox

import (
	"strings"

	"github.com/brandon/unified-inbox/pkg/types"
)

// SuppressHidden drops conversations whose thread is hidden. In selection
// mode hidden threads stay visible so they can be picked again.
func SuppressHidden(conversations []types.Conversation, hidden map[string]struct{}, selectionMode bool) []types.Conversation {
	if selectionMode || len(hidden) == 0 {
		return conversations
	}

	out := make([]types.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if _, ok := hidden[c.ThreadID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Search keeps conversations whose sender name, thread id, from-address or
// channel contains query, ignoring case. An empty query keeps everything.
func Search(conversations []types.Conversation, query string) []types.Conversation {
	q := strings.ToLower(query)
	if q == "" {
		return conversations
	}

	out := make([]types.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if Matches(&c, q) {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether a lower-cased query hits any searchable field
func Matches(c *types.Conversation, lowerQuery string) bool {
	for _, field := range []string{c.SenderName, c.ThreadID, c.MessageFrom, string(c.Channel)} {
		if strings.Contains(strings.ToLower(field), lowerQuery) {
			return true
		}
	}
	return false
}

// Visible applies hidden suppression and then search, in that order
func Visible(conversations []types.Conversation, hidden map[string]struct{}, selectionMode bool, query string) []types.Conversation {
	return Search(SuppressHidden(conversations, hidden, selectionMode), query)
}
