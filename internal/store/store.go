package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/unified-inbox/pkg/types"
)

// timeLayout is what we write. Rows written by the backend may use other
// layouts or offsets, so queries order by julianday(uploaded_at), never by
// the raw text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// orderOldestFirst and orderNewestFirst compare instants, with id settling ties
const (
	orderOldestFirst = "julianday(uploaded_at) ASC, id ASC"
	orderNewestFirst = "julianday(uploaded_at) DESC, id DESC"
)

// unixEpochJulianDay is julianday('1970-01-01T00:00:00Z')
const unixEpochJulianDay = 2440587.5

const messageColumns = `id, channel, thread_id, message_from, message_to, sender_name, user_type, direction,
	user_message, final_reply, ai_reply, status, uploaded_at, customer_image_url, agent_image_url,
	message_id_ebay, item_id_ebay`

// Store provides methods for reading and writing the message table
type Store struct {
	db     *DB
	logger *logrus.Logger
}

// NewStore creates a new store instance
func NewStore(db *DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// InsertMessage adds a message. Existing ids are left untouched so that
// re-ingesting never rewrites a status set by the backend.
func (s *Store) InsertMessage(ctx context.Context, msg *types.Message) (bool, error) {
	query := `
		INSERT INTO inbox_messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	result, err := s.db.SQL().ExecContext(ctx, query,
		msg.ID,
		string(msg.Channel),
		msg.ThreadID,
		msg.MessageFrom,
		msg.MessageTo,
		msg.SenderName,
		string(msg.UserType),
		string(msg.Direction),
		nullString(msg.UserMessage),
		nullString(msg.FinalReply),
		nullString(msg.AIReply),
		string(msg.Status),
		formatTime(msg.UploadedAt),
		nullString(msg.CustomerImageURL),
		nullString(msg.AgentImageURL),
		nullString(msg.EbayMessageID),
		nullString(msg.EbayItemID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// FetchMessages returns every message of a thread, oldest first
func (s *Store) FetchMessages(ctx context.Context, threadID string) ([]types.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM inbox_messages WHERE thread_id = ? ORDER BY ` + orderOldestFirst

	rows, err := s.db.SQL().QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// LatestSuggestedReply returns the ai_reply of the newest message in a thread.
// The bool is false when the newest message has no suggestion.
func (s *Store) LatestSuggestedReply(ctx context.Context, threadID string) (string, bool, error) {
	var reply sql.NullString
	err := s.db.SQL().QueryRowContext(ctx,
		`SELECT ai_reply FROM inbox_messages WHERE thread_id = ? ORDER BY `+orderNewestFirst+` LIMIT 1`,
		threadID,
	).Scan(&reply)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to fetch suggested reply: %w", err)
	}
	if !reply.Valid || reply.String == "" {
		return "", false, nil
	}
	return reply.String, true, nil
}

// ThreadStamp returns the message count and newest upload time of a thread,
// ignoring any filter. A missing thread has a zero stamp.
func (s *Store) ThreadStamp(ctx context.Context, threadID string) (types.ThreadStamp, error) {
	var count int
	var latest sql.NullFloat64
	err := s.db.SQL().QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(julianday(uploaded_at)) FROM inbox_messages WHERE thread_id = ?`,
		threadID,
	).Scan(&count, &latest)
	if err != nil {
		return types.ThreadStamp{}, fmt.Errorf("failed to fetch thread stamp: %w", err)
	}

	stamp := types.ThreadStamp{Count: count}
	if latest.Valid {
		stamp.LastMessageTime = fromJulianDay(latest.Float64)
	}
	return stamp, nil
}

// CountMessages returns the number of stored messages
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var count int
	err := s.db.SQL().QueryRowContext(ctx, "SELECT COUNT(*) FROM inbox_messages").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]types.Message, error) {
	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		var channel, userType, direction, status, uploadedAt string
		var userMessage, finalReply, aiReply, customerImage, agentImage, ebayMessageID, ebayItemID sql.NullString

		err := rows.Scan(
			&msg.ID,
			&channel,
			&msg.ThreadID,
			&msg.MessageFrom,
			&msg.MessageTo,
			&msg.SenderName,
			&userType,
			&direction,
			&userMessage,
			&finalReply,
			&aiReply,
			&status,
			&uploadedAt,
			&customerImage,
			&agentImage,
			&ebayMessageID,
			&ebayItemID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Channel = types.Channel(channel)
		msg.UserType = types.UserType(userType)
		msg.Direction = types.Direction(direction)
		msg.Status = types.Status(status)
		msg.UserMessage = stringPtr(userMessage)
		msg.FinalReply = stringPtr(finalReply)
		msg.AIReply = stringPtr(aiReply)
		msg.CustomerImageURL = stringPtr(customerImage)
		msg.AgentImageURL = stringPtr(agentImage)
		msg.EbayMessageID = stringPtr(ebayMessageID)
		msg.EbayItemID = stringPtr(ebayItemID)
		msg.UploadedAt = parseTime(uploadedAt)

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts our own layout plus whatever the backend writes
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// fromJulianDay converts a SQLite julian day to UTC, rounded to the
// millisecond precision julianday keeps
func fromJulianDay(jd float64) time.Time {
	ms := math.Round((jd - unixEpochJulianDay) * 86400000)
	return time.UnixMilli(int64(ms)).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
