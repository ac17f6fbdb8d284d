package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/collab-backend/internal/logger"
)

// Relay читает уведомления из Redis и передаёт их в локальный websocket-хаб.
// С Redis каждый инстанс доставляет в свои соединения то, что опубликовал любой инстанс.
type Relay struct {
	client redis.UniversalClient
	hub    ProfilePusher
}

func NewRelay(client redis.UniversalClient, hub ProfilePusher) *Relay {
	return &Relay{client: client, hub: hub}
}

// Run блокируется до отмены ctx.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(ctx, msg)
		}
	}
}

func (r *Relay) forward(ctx context.Context, msg *redis.Message) {
	log := logger.FromContext(ctx).WithField("channel", msg.Channel)

	profileID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, ChannelPrefix))
	if err != nil {
		log.WithError(err).Warn("relay: bad channel")
		return
	}
	var p Payload
	if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
		log.WithError(err).Warn("relay: bad payload")
		return
	}
	if err := r.hub.SendToProfile(ctx, profileID, string(p.Event), p.Data); err != nil {
		log.WithError(err).Warn("relay: hub delivery failed")
	}
}
