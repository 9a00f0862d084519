package postgres

import (
	"context"
	"database/sql"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append bumps the room's sequence row and inserts the message. Both
// statements run on the caller's transaction, so the sequence can never be
// consumed without the insert landing.
func (r *MessageRepo) Append(
	ctx context.Context,
	msg *domain.Message,
) (int64, error) {
	if msg.RoomID == "" {
		return 0, domain.ErrRoomNotFound
	}
	exec := GetExecutor(ctx, r.db)
	var seq int64
	err := exec.QueryRowContext(ctx, `
        UPDATE room_sequences
        SET last_seq = last_seq + 1
        WHERE room_id = $1
        RETURNING last_seq
    `, msg.RoomID).Scan(&seq)
	if err != nil {
		if err == sql.ErrNoRows {
			// No sequence row = room does not exist.
			return 0, domain.ErrRoomNotFound
		}
		return 0, err
	}
	_, err = exec.ExecContext(ctx, `
        INSERT INTO messages (
            id, room_id, sender_id, seq, text, file_url, file_type, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `,
		msg.ID,
		msg.RoomID,
		msg.SenderID,
		seq,
		msg.Content.Text,
		nullable(msg.Content.FileURL),
		nullable(msg.Content.FileType),
		msg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *MessageRepo) History(
	ctx context.Context,
	roomID string,
	beforeSeq int64,
	limit int,
) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrRoomNotFound
	}
	if limit <= 0 {
		limit = 50
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, room_id, sender_id, seq, text, file_url, file_type, created_at
		FROM messages
		WHERE room_id = $1
		AND ($2 <= 0 OR seq < $2)
		ORDER BY seq DESC
		LIMIT $3
	`, roomID, beforeSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var fileURL, fileType sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.RoomID,
			&m.SenderID,
			&m.Seq,
			&m.Content.Text,
			&fileURL,
			&fileType,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Content.FileURL = fileURL.String
		m.Content.FileType = fileType.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
