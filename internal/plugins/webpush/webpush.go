// Package webpush delivers out-of-band notifications over the Web Push
// protocol with VAPID authentication.
package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/Kingsley-codes/funlearn-backend/internal/config"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

type Client struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
}

var _ contracts.Pusher = (*Client)(nil)

func NewClient(cfg config.PushConfig) *Client {
	return &Client{
		subscriber: cfg.Subscriber,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		ttl:        cfg.TTLSeconds,
	}
}

// Send pushes one payload to one subscription. A 404/410 from the push
// service means the subscription is permanently dead and is reported as
// domain.ErrTargetGone so the caller can have it cleared.
func (c *Client) Send(ctx context.Context, sub domain.PushSubscription, payload domain.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, target, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             c.ttl,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return domain.ErrTargetGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service error: status %d", resp.StatusCode)
	}
	return nil
}
