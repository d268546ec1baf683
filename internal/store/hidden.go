package store

import (
	"context"
	"fmt"
)

// HiddenThreadIDs returns the ids of every hidden thread
func (s *Store) HiddenThreadIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.SQL().QueryContext(ctx, "SELECT thread_id FROM hidden_threads ORDER BY thread_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query hidden threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan hidden thread: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hidden threads: %w", err)
	}
	return ids, nil
}

// AddHiddenThreads marks threads hidden. Already hidden ids are ignored.
func (s *Store) AddHiddenThreads(ctx context.Context, ids []string) error {
	return s.execEach(ctx, "INSERT INTO hidden_threads (thread_id) VALUES (?) ON CONFLICT(thread_id) DO NOTHING", ids)
}

// RemoveHiddenThreads un-hides threads. Unknown ids are ignored.
func (s *Store) RemoveHiddenThreads(ctx context.Context, ids []string) error {
	return s.execEach(ctx, "DELETE FROM hidden_threads WHERE thread_id = ?", ids)
}

func (s *Store) execEach(ctx context.Context, query string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to update hidden thread %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hidden threads: %w", err)
	}
	return nil
}
