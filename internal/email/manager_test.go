package email

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/unified-inbox/internal/config"
	"github.com/brandon/unified-inbox/pkg/types"
)

func rawMail(headers map[string]string, body string) []byte {
	var b strings.Builder
	for k, v := range headers {
		b.WriteString(k + ": " + v + "\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func TestParseMessageThreadsOnReferences(t *testing.T) {
	raw := RawMessage{UID: 42, Body: rawMail(map[string]string{
		"From":        `"Dana Buyer" <dana@example.com>`,
		"To":          "shop@example.com",
		"Subject":     "Re: order",
		"Date":        "Wed, 01 May 2024 10:00:00 +0000",
		"Message-Id":  "<c@mail>",
		"In-Reply-To": "<b@mail>",
		"References":  "<a@mail> <b@mail>",
	}, "Where is my parcel?")}

	msg, err := ParseMessage("support", "support@example.com", raw)
	require.NoError(t, err)

	assert.Equal(t, "gmail:support:42", msg.ID)
	assert.Equal(t, "a@mail", msg.ThreadID)
	assert.Equal(t, types.ChannelGmail, msg.Channel)
	assert.Equal(t, "dana@example.com", msg.MessageFrom)
	assert.Equal(t, "Dana Buyer", msg.SenderName)
	assert.Equal(t, "support@example.com", msg.MessageTo)
	assert.Equal(t, types.DirectionInbound, msg.Direction)
	assert.Equal(t, types.UserTypeCustomer, msg.UserType)
	assert.Equal(t, types.StatusNew, msg.Status)
	assert.Equal(t, "Where is my parcel?", msg.PreviewText())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), msg.UploadedAt)
}

func TestParseMessageThreadFallbacks(t *testing.T) {
	reply, err := ParseMessage("mb", "", RawMessage{UID: 1, Body: rawMail(map[string]string{
		"From":        "x@example.com",
		"To":          "shop@example.com",
		"Message-Id":  "<own@mail>",
		"In-Reply-To": "<parent@mail>",
	}, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "parent@mail", reply.ThreadID)
	assert.Equal(t, "shop@example.com", reply.MessageTo)
	assert.Equal(t, "x@example.com", reply.SenderName)

	root, err := ParseMessage("mb", "", RawMessage{UID: 2, Body: rawMail(map[string]string{
		"From":       "x@example.com",
		"Message-Id": "<own@mail>",
	}, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "own@mail", root.ThreadID)

	bare, err := ParseMessage("mb", "", RawMessage{UID: 3, InternalDate: time.Unix(100, 0), Body: rawMail(map[string]string{
		"From": "x@example.com",
	}, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "gmail:mb:3", bare.ThreadID)
	assert.Equal(t, time.Unix(100, 0).UTC(), bare.UploadedAt)
}

type fakeFetcher struct {
	messages []RawMessage
	err      error
}

func (f *fakeFetcher) FetchRecent(folder string, limit int) ([]RawMessage, error) {
	return f.messages, f.err
}

func (f *fakeFetcher) Close() error { return nil }

type memWriter struct {
	mu   sync.Mutex
	rows map[string]*types.Message
}

func (w *memWriter) InsertMessage(ctx context.Context, msg *types.Message) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.rows[msg.ID]; ok {
		return false, nil
	}
	w.rows[msg.ID] = msg
	return true, nil
}

func newTestManager(w MessageWriter) *Manager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewManager(&config.Config{}, w, logger)
}

func TestSyncMailboxSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	w := &memWriter{rows: map[string]*types.Message{}}
	m := newTestManager(w)
	fetcher := &fakeFetcher{messages: []RawMessage{
		{UID: 1, Body: rawMail(map[string]string{"From": "a@example.com", "Message-Id": "<1@m>"}, "one")},
		{UID: 2, Body: rawMail(map[string]string{"From": "b@example.com", "Message-Id": "<2@m>"}, "two")},
	}}
	m.Add(&config.MailboxConfig{Name: "support", Folder: "INBOX", Address: "support@example.com"}, fetcher)

	res, err := m.SyncMailbox(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Inserted)

	res, err = m.SyncMailbox(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Len(t, w.rows, 2)
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	w := &memWriter{rows: map[string]*types.Message{}}
	m := newTestManager(w)
	m.Add(&config.MailboxConfig{Name: "a"}, &fakeFetcher{err: errors.New("login failed")})
	m.Add(&config.MailboxConfig{Name: "b"}, &fakeFetcher{messages: []RawMessage{
		{UID: 9, Body: rawMail(map[string]string{"From": "c@example.com"}, "hello")},
	}})

	results, err := m.SyncAll(context.Background())
	assert.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Mailbox)
	assert.Equal(t, []string{"a", "b"}, m.Names())
}

func TestSyncUnknownMailbox(t *testing.T) {
	m := newTestManager(&memWriter{rows: map[string]*types.Message{}})
	_, err := m.SyncMailbox(context.Background(), "nope")
	assert.Error(t, err)
}

type slowFetcher struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	messages []RawMessage
}

func (f *slowFetcher) FetchRecent(folder string, limit int) ([]RawMessage, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return f.messages, nil
}

func (f *slowFetcher) Close() error { return nil }

func TestSyncMailboxSerializesConcurrentCalls(t *testing.T) {
	w := &memWriter{rows: map[string]*types.Message{}}
	m := newTestManager(w)
	fetcher := &slowFetcher{messages: []RawMessage{
		{UID: 1, Body: rawMail(map[string]string{"From": "a@example.com", "Message-Id": "<1@m>"}, "one")},
	}}
	m.Add(&config.MailboxConfig{Name: "support", Folder: "INBOX"}, fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.SyncMailbox(context.Background(), "support")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.maxSeen.Load(), "fetches overlapped")
	assert.Len(t, w.rows, 1)
}

func TestIMAPClientCloseWithoutConnection(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewIMAPClient(&config.MailboxConfig{Name: "support", IMAPHost: "127.0.0.1", IMAPPort: 1}, logger)

	assert.NoError(t, c.Close())
	_, err := c.FetchRecent("INBOX", 10)
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}
