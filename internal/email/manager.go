// Package email ingests IMAP mailboxes into the message store as the gmail
// channel.
package email

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/internal/config"
	"github.com/brandon/unified-inbox/internal/metrics"
	"github.com/brandon/unified-inbox/pkg/types"
)

// Fetcher reads recent messages from a mailbox folder
type Fetcher interface {
	FetchRecent(folder string, limit int) ([]RawMessage, error)
	Close() error
}

// MessageWriter is the store side of ingest
type MessageWriter interface {
	InsertMessage(ctx context.Context, msg *types.Message) (bool, error)
}

// Mailbox pairs a mailbox config with its connection. Syncs of one mailbox
// never overlap.
type Mailbox struct {
	Config  *config.MailboxConfig
	Fetcher Fetcher

	mu sync.Mutex
}

// SyncResult summarizes one mailbox sync
type SyncResult struct {
	Mailbox  string `json:"mailbox"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// Manager syncs configured mailboxes into the store
type Manager struct {
	mailboxes map[string]*Mailbox
	store     MessageWriter
	logger    *logrus.Logger
}

// NewManager creates a manager with an IMAP client per configured mailbox
func NewManager(cfg *config.Config, store MessageWriter, logger *logrus.Logger) *Manager {
	m := &Manager{
		mailboxes: make(map[string]*Mailbox),
		store:     store,
		logger:    logger,
	}
	for i := range cfg.Mailboxes {
		mbCfg := &cfg.Mailboxes[i]
		m.Add(mbCfg, NewIMAPClient(mbCfg, logger))
	}
	return m
}

// Add registers a mailbox with the given fetcher
func (m *Manager) Add(cfg *config.MailboxConfig, fetcher Fetcher) {
	m.mailboxes[cfg.Name] = &Mailbox{Config: cfg, Fetcher: fetcher}
}

// Names returns the configured mailbox names, sorted
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.mailboxes))
	for name := range m.mailboxes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SyncMailbox pulls the newest messages of one mailbox into the store.
// Messages already present are skipped.
func (m *Manager) SyncMailbox(ctx context.Context, name string) (*SyncResult, error) {
	mb, ok := m.mailboxes[name]
	if !ok {
		return nil, fmt.Errorf("mailbox not found: %s", name)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	raws, err := mb.Fetcher.FetchRecent(mb.Config.Folder, defaultFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}

	result := &SyncResult{Mailbox: name, Fetched: len(raws)}
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		msg, err := ParseMessage(name, mb.Config.Address, raw)
		if err != nil {
			m.logger.WithError(err).WithField("uid", raw.UID).Warn("Failed to parse message")
			result.Skipped++
			continue
		}

		inserted, err := m.store.InsertMessage(ctx, msg)
		if err != nil {
			m.logger.WithError(err).WithField("message_id", msg.ID).Warn("Failed to store message")
			result.Skipped++
			continue
		}
		if inserted {
			result.Inserted++
		}
	}

	metrics.Ingested.WithLabelValues(name).Add(float64(result.Inserted))
	m.logger.WithFields(logrus.Fields{
		"mailbox":  name,
		"folder":   mb.Config.Folder,
		"fetched":  result.Fetched,
		"inserted": result.Inserted,
	}).Info("Synced mailbox")

	return result, nil
}

// SyncAll syncs every mailbox. A failing mailbox is logged and does not
// stop the others; the first error is returned.
func (m *Manager) SyncAll(ctx context.Context) ([]SyncResult, error) {
	var (
		results  []SyncResult
		firstErr error
	)
	for _, name := range m.Names() {
		res, err := m.SyncMailbox(ctx, name)
		if err != nil {
			m.logger.WithError(err).WithField("mailbox", name).Warn("Failed to sync mailbox")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, *res)
	}
	return results, firstErr
}

// Close closes all connections
func (m *Manager) Close() error {
	for _, mb := range m.mailboxes {
		if mb.Fetcher != nil {
			mb.Fetcher.Close() //nolint:errcheck
		}
	}
	return nil
}
