// Package dispatch posts operator replies to the webhook of each channel.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/internal/config"
	"github.com/brandon/unified-inbox/internal/metrics"
	"github.com/brandon/unified-inbox/pkg/types"
)

var (
	// ErrEmptyReply means there was neither text nor an image to send
	ErrEmptyReply = errors.New("reply has no text and no image")
	// ErrImageEncode means the attached image could not be read or encoded
	ErrImageEncode = errors.New("failed to encode image")
	// ErrSendFailed means the webhook could not be reached or did not accept the reply
	ErrSendFailed = errors.New("failed to send reply")
)

// Reply is what the operator wants to send
type Reply struct {
	Text      string
	ImagePath string
}

// Dispatcher sends replies. Each send is a single request with no retry.
type Dispatcher struct {
	config *config.Config
	client *http.Client
	logger *logrus.Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher using the configured webhooks
func NewDispatcher(cfg *config.Config, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		config: cfg,
		client: &http.Client{Timeout: cfg.SendTimeout},
		logger: logger,
		now:    time.Now,
	}
}

// Send encodes the optional image, builds the payload and posts it to the
// conversation's channel webhook. Nothing is sent when validation or image
// encoding fails.
func (d *Dispatcher) Send(ctx context.Context, conv types.Conversation, history []types.Message, reply Reply) (*Payload, error) {
	text := strings.TrimSpace(reply.Text)
	if text == "" && reply.ImagePath == "" {
		return nil, ErrEmptyReply
	}

	var image string
	if reply.ImagePath != "" {
		var err error
		image, err = EncodeImageFile(reply.ImagePath)
		if err != nil {
			metrics.Replies.WithLabelValues(string(conv.Channel.Normalize()), metrics.ResultEncodeError).Inc()
			return nil, err
		}
	}

	payload := BuildPayload(conv, history, text, image, d.now())
	webhook := d.config.WebhookFor(conv.Channel)

	logger := d.logger.WithFields(logrus.Fields{
		"thread_id": conv.ThreadID,
		"channel":   conv.Channel,
		"has_image": image != "",
	})

	start := time.Now()
	err := d.post(ctx, webhook, &payload)
	metrics.ReplyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Replies.WithLabelValues(string(conv.Channel.Normalize()), metrics.ResultError).Inc()
		logger.WithError(err).Warn("Failed to send reply")
		return nil, err
	}

	metrics.Replies.WithLabelValues(string(conv.Channel.Normalize()), metrics.ResultOK).Inc()
	logger.Info("Sent reply")
	return &payload, nil
}

func (d *Dispatcher) post(ctx context.Context, url string, payload *Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: webhook returned %d: %s", ErrSendFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}
