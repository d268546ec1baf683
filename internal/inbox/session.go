package inbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/brandon/unified-inbox/internal/metrics"
	"github.com/brandon/unified-inbox/pkg/types"
)

// MessageSource is the part of the message store the session reads
type MessageSource interface {
	FetchConversationMessages(ctx context.Context, filter types.FilterOptions) ([]types.Message, error)
	FetchMessages(ctx context.Context, threadID string) ([]types.Message, error)
	ThreadStamp(ctx context.Context, threadID string) (types.ThreadStamp, error)
}

// Options tunes a Session
type Options struct {
	RefreshInterval       time.Duration
	HiddenRefreshInterval time.Duration
	ThreadCacheSize       int
}

// DefaultOptions matches the intervals the inbox has always polled at
func DefaultOptions() Options {
	return Options{
		RefreshInterval:       10 * time.Second,
		HiddenRefreshInterval: 5 * time.Second,
		ThreadCacheSize:       64,
	}
}

// Session owns one operator's view: filters, search text, the conversation
// list and the hidden-thread registry.
//
// Every refresh takes a sequence number when it starts. A result is applied
// only if no later refresh has started since, so a slow response can never
// overwrite the outcome of a newer request.
type Session struct {
	source   MessageSource
	registry *Registry
	threads  *ThreadCache
	opts     Options
	logger   *logrus.Logger

	issued atomic.Uint64

	mu            sync.RWMutex
	filters       types.FilterOptions
	query         string
	conversations []types.Conversation
}

// NewSession creates a session. Nothing is loaded until Refresh or Run.
func NewSession(source MessageSource, registry *Registry, opts Options, logger *logrus.Logger) (*Session, error) {
	defaults := DefaultOptions()
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaults.RefreshInterval
	}
	if opts.HiddenRefreshInterval <= 0 {
		opts.HiddenRefreshInterval = defaults.HiddenRefreshInterval
	}
	if opts.ThreadCacheSize <= 0 {
		opts.ThreadCacheSize = defaults.ThreadCacheSize
	}

	threads, err := NewThreadCache(opts.ThreadCacheSize)
	if err != nil {
		return nil, err
	}

	return &Session{
		source:   source,
		registry: registry,
		threads:  threads,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Registry returns the session's hidden-thread registry
func (s *Session) Registry() *Registry {
	return s.registry
}

// Refresh reloads the conversation list with the current filters.
// A store failure leaves an empty list and is returned for the caller to log.
func (s *Session) Refresh(ctx context.Context) error {
	// filters and seq are read together: the highest seq always carries the
	// latest filters
	s.mu.RLock()
	filters := s.filters
	seq := s.issued.Add(1)
	s.mu.RUnlock()

	messages, fetchErr := s.source.FetchConversationMessages(ctx, filters)
	if fetchErr != nil {
		messages = nil
	}

	conversations := Aggregate(messages)
	SortConversations(conversations)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.issued.Load() {
		metrics.Refreshes.WithLabelValues("conversations", metrics.ResultStale).Inc()
		s.logger.WithField("seq", seq).Debug("Discarded stale conversation refresh")
		return nil
	}

	s.conversations = conversations

	unread := 0
	for i := range conversations {
		unread += conversations[i].UnreadCount
	}
	metrics.Conversations.Set(float64(len(conversations)))
	metrics.Unread.Set(float64(unread))

	if fetchErr != nil {
		metrics.Refreshes.WithLabelValues("conversations", metrics.ResultError).Inc()
		return fmt.Errorf("failed to refresh conversations: %w", fetchErr)
	}
	metrics.Refreshes.WithLabelValues("conversations", metrics.ResultOK).Inc()
	return nil
}

// RefreshHidden reloads the hidden-thread set
func (s *Session) RefreshHidden(ctx context.Context) error {
	if err := s.registry.Refresh(ctx); err != nil {
		metrics.Refreshes.WithLabelValues("hidden", metrics.ResultError).Inc()
		return err
	}
	metrics.Refreshes.WithLabelValues("hidden", metrics.ResultOK).Inc()
	metrics.HiddenThreads.Set(float64(len(s.registry.Snapshot())))
	return nil
}

// SetFilters replaces the store-level filters and refreshes
func (s *Session) SetFilters(ctx context.Context, filters types.FilterOptions) error {
	s.mu.Lock()
	s.filters = filters
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Filters returns the current store-level filters
func (s *Session) Filters() types.FilterOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// SetQuery sets the free-text search; no fetch is needed
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
}

// Query returns the current search text
func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Conversations returns the full sorted list, hidden threads included
func (s *Session) Conversations() []types.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations
}

// Visible returns what the operator sees. In selection mode hidden threads
// are kept so they can be un-hidden.
func (s *Session) Visible(selectionMode bool) []types.Conversation {
	s.mu.RLock()
	conversations, query := s.conversations, s.query
	s.mu.RUnlock()

	return Visible(conversations, s.registry.Snapshot(), selectionMode, query)
}

// Conversation looks up a conversation in the current list
func (s *Session) Conversation(threadID string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ThreadID == threadID {
			return c, true
		}
	}
	return types.Conversation{}, false
}

// Thread returns a thread's messages, oldest first. Histories are cached
// until the thread's stamp in the store moves. The stamp covers the whole
// thread, so messages excluded by the current filters still invalidate it.
func (s *Session) Thread(ctx context.Context, threadID string) ([]types.Message, error) {
	stamp, err := s.source.ThreadStamp(ctx, threadID)
	cacheable := err == nil
	if err != nil {
		s.logger.WithError(err).WithField("thread_id", threadID).Debug("Thread stamp unavailable, bypassing cache")
	}

	if cacheable {
		if messages, ok := s.threads.Get(threadID, stamp); ok {
			return messages, nil
		}
	}

	messages, err := s.source.FetchMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}

	if cacheable && stamp.Count == len(messages) {
		s.threads.Put(threadID, stamp, messages)
	}
	return messages, nil
}

// InvalidateThread forgets a cached thread history
func (s *Session) InvalidateThread(threadID string) {
	s.threads.Invalidate(threadID)
}

// Run loads the session and then polls the conversation list and the hidden
// set on their own intervals until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	if err := s.RefreshHidden(ctx); err != nil {
		s.logger.WithError(err).Warn("Initial hidden thread load failed")
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Initial conversation load failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.poll(gctx, "conversations", s.opts.RefreshInterval, s.Refresh)
	})
	g.Go(func() error {
		return s.poll(gctx, "hidden", s.opts.HiddenRefreshInterval, s.RefreshHidden)
	})
	return g.Wait()
}

func (s *Session) poll(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				s.logger.WithError(err).WithField("task", name).Warn("Background refresh failed")
			}
		}
	}
}
