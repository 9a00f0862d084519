package domain

import "errors"

var (
	ErrDuplicateConnection = errors.New("connection id already registered")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrNotAMember          = errors.New("sender is not a member of the room")
	ErrMissingContent      = errors.New("message content is empty")
	ErrRoomNotFound        = errors.New("room not found")
	ErrUserNotFound        = errors.New("user not found")
	// ErrTargetGone marks a push target the transport reported as permanently
	// invalid (endpoint expired or unsubscribed).
	ErrTargetGone = errors.New("push target gone")
)
