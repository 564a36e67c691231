package push

import (
	"context"
	"io"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db/models"
)

// Transport sends one encrypted payload to one endpoint and reports the
// resulting HTTP status. Tests substitute a fake; production uses webpush.
type Transport interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error)
}

type webpushTransport struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
}

// NewWebPushTransport returns the production VAPID transport.
func NewWebPushTransport(cfg config.PushConfig) Transport {
	return &webpushTransport{
		subscriber: cfg.ContactEmail,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		ttl:        cfg.TTLSeconds,
	}
}

func (t *webpushTransport) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) (int, error) {
	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, target, &webpush.Options{
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             t.ttl,
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	return resp.StatusCode, nil
}
