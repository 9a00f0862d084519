package logging

import "log/slog"

// Domain identifiers

func Room(id string) slog.Attr {
	return slog.String("room_id", id)
}

func Sender(id string) slog.Attr {
	return slog.String("sender_id", id)
}

func Conn(id string) slog.Attr {
	return slog.String("conn_id", id)
}

func ClientMsg(id string) slog.Attr {
	return slog.String("client_msg_id", id)
}

func Sequence(seq int64) slog.Attr {
	return slog.Int64("sequence", seq)
}

func Recipient(id string) slog.Attr {
	return slog.String("recipient_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
