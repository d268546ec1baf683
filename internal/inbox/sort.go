package inbox

import (
	"sort"

	"github.com/brandon/unified-inbox/pkg/types"
)

// SortConversations orders conversations in place: unanswered first, then
// most recent first. Thread id settles exact ties.
func SortConversations(conversations []types.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return Less(&conversations[i], &conversations[j])
	})
}

// Less is the ordering used by SortConversations
func Less(a, b *types.Conversation) bool {
	aNew, bNew := a.Status == types.StatusNew, b.Status == types.StatusNew
	if aNew != bNew {
		return aNew
	}
	if !a.LastMessageTime.Equal(b.LastMessageTime) {
		return a.LastMessageTime.After(b.LastMessageTime)
	}
	return a.ThreadID < b.ThreadID
}
