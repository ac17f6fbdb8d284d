package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
)

// Payload - формат уведомления во входящих и в pub/sub: {"event", "data"}.
type Payload struct {
	Event entity.NotificationType `json:"event"`
	Data  map[string]any          `json:"data,omitempty"`
}

func encode(intent entity.NotificationIntent) ([]byte, error) {
	raw, err := json.Marshal(Payload{Event: intent.Type, Data: intent.Data})
	if err != nil {
		return nil, fmt.Errorf("notify: marshal payload: %w", err)
	}
	return raw, nil
}

// StoreSink сохраняет уведомление во входящие получателя.
type StoreSink struct {
	repo repository.NotificationRepository
}

func NewStoreSink(repo repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, intent entity.NotificationIntent) error {
	raw, err := encode(intent)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, &entity.Notification{
		RecipientID: intent.Recipient,
		Payload:     raw,
	})
}

type ProfilePusher interface {
	SendToProfile(ctx context.Context, profileID uuid.UUID, event string, data any) error
}

// HubSink отправляет уведомление в открытые websocket-соединения получателя.
type HubSink struct {
	hub ProfilePusher
}

func NewHubSink(hub ProfilePusher) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "ws" }

func (s *HubSink) Deliver(ctx context.Context, intent entity.NotificationIntent) error {
	return s.hub.SendToProfile(ctx, intent.Recipient, string(intent.Type), intent.Data)
}

// ChannelPrefix - каналы Redis вида notifications:<profile_id>.
const ChannelPrefix = "notifications:"

func Channel(profileID uuid.UUID) string {
	return ChannelPrefix + profileID.String()
}

// RedisSink публикует уведомление в Redis, чтобы его получили другие инстансы.
type RedisSink struct {
	client redis.UniversalClient
}

func NewRedisSink(client redis.UniversalClient) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, intent entity.NotificationIntent) error {
	raw, err := encode(intent)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, Channel(intent.Recipient), raw).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

// NewRedisClient разбирает REDIS_URL и проверяет соединение.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("notify: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify: redis ping: %w", err)
	}
	return client, nil
}
