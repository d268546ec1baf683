package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brandon/unified-inbox/pkg/types"
)

func TestSortConversationsNewFirstThenRecent(t *testing.T) {
	convs := []types.Conversation{
		{ThreadID: "old-answered", Status: types.StatusAnswered, LastMessageTime: t0},
		{ThreadID: "recent-answered", Status: types.StatusAnswered, LastMessageTime: t0.Add(time.Hour)},
		{ThreadID: "old-new", Status: types.StatusNew, LastMessageTime: t0.Add(-time.Hour)},
		{ThreadID: "recent-new", Status: types.StatusNew, LastMessageTime: t0.Add(30 * time.Minute)},
	}

	SortConversations(convs)

	assert.Equal(t, []string{"recent-new", "old-new", "recent-answered", "old-answered"}, threadIDs(convs))
}

func TestSortConversationsInvariant(t *testing.T) {
	convs := []types.Conversation{
		{ThreadID: "a", Status: types.StatusAnswered, LastMessageTime: t0.Add(5 * time.Hour)},
		{ThreadID: "b", Status: types.StatusNew, LastMessageTime: t0},
		{ThreadID: "c", Status: types.StatusAnswered, LastMessageTime: t0.Add(time.Hour)},
		{ThreadID: "d", Status: types.StatusNew, LastMessageTime: t0.Add(2 * time.Hour)},
		{ThreadID: "e", Status: types.StatusNew, LastMessageTime: t0.Add(2 * time.Hour)},
	}

	SortConversations(convs)

	for i := 0; i < len(convs); i++ {
		for j := i + 1; j < len(convs); j++ {
			a, b := convs[i], convs[j]
			if a.Status == types.StatusAnswered {
				assert.NotEqual(t, types.StatusNew, b.Status, "%s before %s", a.ThreadID, b.ThreadID)
			}
			if a.Status == b.Status {
				assert.False(t, a.LastMessageTime.Before(b.LastMessageTime), "%s before %s", a.ThreadID, b.ThreadID)
			}
		}
	}
	assert.Equal(t, "d", convs[0].ThreadID, "ties settle by thread id")
}
