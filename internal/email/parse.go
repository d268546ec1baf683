package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/brandon/unified-inbox/pkg/types"
)

// ParseMessage converts a raw RFC 822 message into an inbound gmail record.
//
// The thread id is the root of the References chain, else In-Reply-To, else
// the message's own Message-Id. Messages lacking all three fall back to a
// per-uid thread so they still show up.
func ParseMessage(mailbox, address string, raw RawMessage) (*types.Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %d: %w", raw.UID, err)
	}

	msg := &types.Message{
		ID:         fmt.Sprintf("gmail:%s:%d", mailbox, raw.UID),
		Channel:    types.ChannelGmail,
		ThreadID:   threadID(env),
		MessageTo:  address,
		UserType:   types.UserTypeCustomer,
		Direction:  types.DirectionInbound,
		Status:     types.StatusNew,
		UploadedAt: messageDate(env, raw.InternalDate),
	}
	if msg.ThreadID == "" {
		msg.ThreadID = msg.ID
	}

	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		msg.MessageFrom = from[0].Address
		msg.SenderName = from[0].Name
	}
	if msg.SenderName == "" {
		msg.SenderName = msg.MessageFrom
	}
	if msg.MessageTo == "" {
		if to, err := env.AddressList("To"); err == nil && len(to) > 0 {
			msg.MessageTo = to[0].Address
		}
	}

	text := strings.TrimSpace(env.Text)
	if subject := strings.TrimSpace(env.GetHeader("Subject")); subject != "" && text == "" {
		text = subject
	}
	msg.UserMessage = types.StringPtr(text)
	msg.CustomerImageURL = types.StringPtr(firstImage(env))

	return msg, nil
}

func threadID(env *enmime.Envelope) string {
	if refs := messageIDs(env.GetHeader("References")); len(refs) > 0 {
		return refs[0]
	}
	if ids := messageIDs(env.GetHeader("In-Reply-To")); len(ids) > 0 {
		return ids[0]
	}
	if ids := messageIDs(env.GetHeader("Message-Id")); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// messageIDs splits a header of <id> tokens and strips the brackets
func messageIDs(header string) []string {
	var ids []string
	for _, f := range strings.Fields(header) {
		id := strings.Trim(f, "<>,")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func messageDate(env *enmime.Envelope, fallback time.Time) time.Time {
	if d, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		return d.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Now().UTC()
}

func firstImage(env *enmime.Envelope) string {
	parts := append(append([]*enmime.Part{}, env.Inlines...), env.Attachments...)
	for _, p := range parts {
		if strings.HasPrefix(p.ContentType, "image/") && len(p.Content) > 0 {
			return "data:" + p.ContentType + ";base64," + base64.StdEncoding.EncodeToString(p.Content)
		}
	}
	return ""
}
