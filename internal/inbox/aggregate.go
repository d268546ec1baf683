// Package inbox derives the conversation list shown to the operator from the
// flat message table, and owns the session state around it.
package inbox

import (
	"sort"

	"github.com/brandon/unified-inbox/pkg/types"
)

// Aggregate folds messages into one Conversation per thread id.
//
// Input order does not matter: messages are sorted by upload time (id breaks
// ties) before folding, and each message at or after the current
// representative's time replaces it. The unread count is the number of "new"
// messages in the thread regardless of which one is representative.
// Conversations are returned in order of first appearance in the sorted input.
func Aggregate(messages []types.Message) []types.Conversation {
	sorted := make([]types.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].UploadedAt, sorted[j].UploadedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return sorted[i].ID < sorted[j].ID
	})

	index := make(map[string]int)
	var conversations []types.Conversation

	for i := range sorted {
		msg := &sorted[i]

		pos, seen := index[msg.ThreadID]
		if !seen {
			index[msg.ThreadID] = len(conversations)
			conversations = append(conversations, types.Conversation{
				ThreadID:        msg.ThreadID,
				SenderName:      msg.SenderName,
				Channel:         msg.Channel,
				MessageFrom:     msg.MessageFrom,
				MessageTo:       msg.MessageTo,
				Status:          msg.Status,
				LastMessage:     msg.PreviewText(),
				LastMessageTime: msg.UploadedAt,
				UnreadCount:     unread(msg),
			})
			continue
		}

		conv := &conversations[pos]
		if !msg.UploadedAt.Before(conv.LastMessageTime) {
			conv.LastMessage = msg.PreviewText()
			conv.LastMessageTime = msg.UploadedAt
			conv.Status = msg.Status
		}
		conv.UnreadCount += unread(msg)
	}

	return conversations
}

func unread(msg *types.Message) int {
	if msg.Status == types.StatusNew {
		return 1
	}
	return 0
}
