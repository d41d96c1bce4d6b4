package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"chatlink/internal/models"
	"chatlink/internal/types"
)

type QueueRepo interface {
	SaveRoom(ctx context.Context, roomID int64, messages []models.QueuedMessage) error
	LoadAll(ctx context.Context) (map[int64][]models.QueuedMessage, error)
	Clear(ctx context.Context) error
}

type SQLiteQueueRepo struct {
	db *sql.DB
}

func NewQueueRepo(db *sql.DB) QueueRepo {
	return &SQLiteQueueRepo{db: db}
}

// SaveRoom replaces the persisted queue for one room with the given snapshot.
func (r *SQLiteQueueRepo) SaveRoom(ctx context.Context, roomID int64, messages []models.QueuedMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin queue snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queued_messages WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("clear queue for room %d: %w", roomID, err)
	}

	const insert = `
        INSERT INTO queued_messages (id, room_id, content, msg_type, moderator_id, created_at, retry_count, max_retries)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, m := range messages {
		var moderatorID any
		if m.ModeratorID != nil {
			moderatorID = *m.ModeratorID
		}
		_, err := tx.ExecContext(ctx, insert,
			m.ID,
			m.ChatRoomID,
			m.Content,
			string(m.Type),
			moderatorID,
			m.Timestamp.Format(time.RFC3339Nano),
			m.RetryCount,
			m.MaxRetries,
		)
		if err != nil {
			return fmt.Errorf("persist queued message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAll returns every persisted queue keyed by room id, in original enqueue
// order. Rows that fail to decode are skipped, not fatal.
func (r *SQLiteQueueRepo) LoadAll(ctx context.Context) (map[int64][]models.QueuedMessage, error) {
	const query = `
        SELECT id, room_id, content, msg_type, moderator_id, created_at, retry_count, max_retries
        FROM queued_messages
        ORDER BY room_id, seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load queued messages: %w", err)
	}
	defer rows.Close()

	queues := make(map[int64][]models.QueuedMessage)
	for rows.Next() {
		var (
			m           models.QueuedMessage
			msgType     string
			moderatorID sql.NullInt64
			createdAt   string
		)

		err := rows.Scan(&m.ID, &m.ChatRoomID, &m.Content, &msgType, &moderatorID, &createdAt, &m.RetryCount, &m.MaxRetries)
		if err != nil {
			log.Printf("[STORE] Skipping unreadable queue row: %v", err)
			continue
		}

		m.Type = types.MessageType(msgType)
		if moderatorID.Valid {
			id := moderatorID.Int64
			m.ModeratorID = &id
		}

		m.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			log.Printf("[STORE] Queued message %s has a bad timestamp %q, using now", m.ID, createdAt)
			m.Timestamp = time.Now()
		}

		queues[m.ChatRoomID] = append(queues[m.ChatRoomID], m)
	}

	return queues, rows.Err()
}

func (r *SQLiteQueueRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM queued_messages`)
	if err != nil {
		return fmt.Errorf("clear message queue: %w", err)
	}
	return nil
}
