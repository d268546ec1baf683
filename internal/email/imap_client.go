package email

import (
	"crypto/tls"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/internal/config"
)

// defaultFetchLimit is how many of the newest messages a sync reads
const defaultFetchLimit = 100

// RawMessage is one fetched message before parsing
type RawMessage struct {
	UID          uint32
	InternalDate time.Time
	Body         []byte
}

// IMAPClient wraps an IMAP client connection. One command exchange runs at
// a time; mu guards the connection.
type IMAPClient struct {
	config *config.MailboxConfig
	logger *logrus.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// NewIMAPClient creates a new IMAP client (does not connect immediately)
func NewIMAPClient(cfg *config.MailboxConfig, logger *logrus.Logger) *IMAPClient {
	return &IMAPClient{
		config: cfg,
		logger: logger,
	}
}

// Connect establishes a connection to the IMAP server
func (c *IMAPClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect()
}

func (c *IMAPClient) connect() error {
	if c.connected && c.client != nil {
		return nil
	}
	// a broken connection is logged out before redialing
	c.logout() //nolint:errcheck

	addr := fmt.Sprintf("%s:%d", c.config.IMAPHost, c.config.IMAPPort)

	cl, err := client.DialTLS(addr, &tls.Config{
		ServerName: c.config.IMAPHost,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	c.client = cl

	if err := c.client.Login(c.config.IMAPUsername, c.config.IMAPPassword); err != nil {
		c.logger.WithError(err).WithField("mailbox", c.config.Name).Error("Failed to login to IMAP server")
		c.client.Logout() //nolint:errcheck
		c.client = nil
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	c.connected = true
	c.logger.WithField("mailbox", c.config.Name).Info("Connected to IMAP server")
	return nil
}

// Close closes the IMAP connection
func (c *IMAPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logout()
}

func (c *IMAPClient) logout() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Logout()
	c.client = nil
	c.connected = false
	return err
}

// FetchRecent returns the newest limit messages of a folder without
// marking them seen.
func (c *IMAPClient) FetchRecent(folder string, limit int) ([]RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	mbox, err := c.client.Select(folder, true)
	if err != nil {
		// A dropped connection surfaces here first; reconnect on the next sync.
		c.logout() //nolint:errcheck
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}
	if mbox.Messages == 0 {
		return []RawMessage{}, nil
	}

	start := uint32(1)
	if mbox.Messages > uint32(limit) {
		start = mbox.Messages - uint32(limit) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(start, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.client.Fetch(seqSet, items, messages)
	}()

	var out []RawMessage
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			c.logger.WithField("uid", msg.Uid).Warn("Message body is nil")
			continue
		}
		body, err := io.ReadAll(literal)
		if err != nil {
			c.logger.WithError(err).WithField("uid", msg.Uid).Warn("Error reading literal")
			continue
		}
		out = append(out, RawMessage{UID: msg.Uid, InternalDate: msg.InternalDate, Body: body})
	}

	if err := <-done; err != nil {
		c.logout() //nolint:errcheck
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return out, nil
}
