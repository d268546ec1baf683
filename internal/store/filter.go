package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/brandon/unified-inbox/pkg/types"
)

// Field names a column that can be listed with DistinctValues
type Field string

const (
	FieldChannel   Field = "channel"
	FieldThreadID  Field = "thread_id"
	FieldMessageTo Field = "message_to"
)

// ParseField validates a column name coming from a tool call
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldChannel, FieldThreadID, FieldMessageTo:
		return f, nil
	}
	return "", fmt.Errorf("unsupported field: %s", s)
}

// FetchConversationMessages returns every message matching the filter,
// newest first. Grouping into conversations is left to the caller.
func (s *Store) FetchConversationMessages(ctx context.Context, filter types.FilterOptions) ([]types.Message, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Channels) > 0 {
		values := make([]string, len(filter.Channels))
		for i, ch := range filter.Channels {
			values[i] = string(ch)
		}
		conditions = append(conditions, inClause("channel", len(values)))
		args = appendStrings(args, values)
	}

	if len(filter.ThreadIDs) > 0 {
		conditions = append(conditions, inClause("thread_id", len(filter.ThreadIDs)))
		args = appendStrings(args, filter.ThreadIDs)
	}

	if len(filter.MessageTo) > 0 {
		conditions = append(conditions, inClause("message_to", len(filter.MessageTo)))
		args = appendStrings(args, filter.MessageTo)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM inbox_messages
		%s
		ORDER BY %s
	`, messageColumns, whereClause, orderNewestFirst)

	rows, err := s.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// DistinctValues lists the distinct non-empty values of a column
func (s *Store) DistinctValues(ctx context.Context, field Field) ([]string, error) {
	if _, err := ParseField(string(field)); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM inbox_messages WHERE %[1]s IS NOT NULL AND %[1]s != '' ORDER BY %[1]s`, field)
	rows, err := s.db.SQL().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch distinct %s: %w", field, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", field, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read distinct %s: %w", field, err)
	}
	return values, nil
}

func inClause(column string, n int) string {
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

func appendStrings(args []interface{}, values []string) []interface{} {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
