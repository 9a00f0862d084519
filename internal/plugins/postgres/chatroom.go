package postgres

import (
	"context"
	"database/sql"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

// ChatroomRepo reads room membership. Rooms are created and mutated by the
// chatroom collaborator; the chat core only consults them.
type ChatroomRepo struct {
	db *sql.DB
}

var _ domain.ChatroomRepository = (*ChatroomRepo)(nil)

func NewChatroomRepo(db *sql.DB) *ChatroomRepo {
	return &ChatroomRepo{db: db}
}

func (r *ChatroomRepo) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	exec := GetExecutor(ctx, r.db)
	var member bool
	err := exec.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chatroom_members
			WHERE chatroom_id = $1 AND user_id = $2
		)
	`, roomID, userID).Scan(&member)
	if err != nil {
		return false, err
	}
	return member, nil
}

func (r *ChatroomRepo) MembersOf(ctx context.Context, roomID string) ([]string, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT user_id FROM chatroom_members
		WHERE chatroom_id = $1
		ORDER BY user_id
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

func (r *ChatroomRepo) GetChatroom(ctx context.Context, roomID string) (*domain.Chatroom, error) {
	exec := GetExecutor(ctx, r.db)
	var room domain.Chatroom
	err := exec.QueryRowContext(ctx, `
		SELECT id, name FROM chatrooms WHERE id = $1
	`, roomID).Scan(&room.ID, &room.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	members, err := r.MembersOf(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Members = members
	return &room, nil
}
