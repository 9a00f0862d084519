package postgres

import (
	"context"
	"database/sql"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

// UserRepo reads the user fields the chat core needs and clears stale push
// targets on the fan-out's report. Everything else about users belongs to
// the user collaborator.
type UserRepo struct {
	db *sql.DB
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	var u domain.User
	var endpoint, p256dh, auth sql.NullString
	err := exec.QueryRowContext(ctx, `
		SELECT id, user_name, push_endpoint, push_p256dh, push_auth
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Name, &endpoint, &p256dh, &auth)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if endpoint.Valid && endpoint.String != "" {
		u.Subscription = &domain.PushSubscription{
			Endpoint: endpoint.String,
			P256dh:   p256dh.String,
			Auth:     auth.String,
		}
	}
	return &u, nil
}

func (r *UserRepo) ClearPushSubscription(ctx context.Context, userID string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE users
		SET push_endpoint = NULL, push_p256dh = NULL, push_auth = NULL
		WHERE id = $1
	`, userID)
	return err
}
