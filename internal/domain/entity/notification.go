package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyBookingCreated       NotificationType = "booking_created"
	NotifyBookingAccepted      NotificationType = "booking_accepted"
	NotifyBookingDeclined      NotificationType = "booking_declined"
	NotifyBookingCancelled     NotificationType = "booking_cancelled"
	NotifyDepositPaid          NotificationType = "deposit_paid"
	NotifyWorkStarted          NotificationType = "work_started"
	NotifyDeliverySubmitted    NotificationType = "delivery_submitted"
	NotifyRevisionRequested    NotificationType = "revision_requested"
	NotifyBookingConfirmed     NotificationType = "booking_confirmed"
	NotifyDisputeOpened        NotificationType = "dispute_opened"
	NotifyDisputeResponded     NotificationType = "dispute_responded"
	NotifyDisputeResolved      NotificationType = "dispute_resolved"
	NotifySubscriptionReminder NotificationType = "subscription_reminder"
	NotifySubscriptionExpired  NotificationType = "subscription_expired"
	NotifySubscriptionWinback  NotificationType = "subscription_winback"
	NotifyMessageReceived      NotificationType = "message_received"
)

// NotificationIntent - запрос на уведомление, который переход состояния возвращает
// вместе с результатом. Доставляет его диспетчер уже после фиксации транзакции.
type NotificationIntent struct {
	Type      NotificationType `json:"type"`
	Recipient uuid.UUID        `json:"recipient"`
	Data      map[string]any   `json:"data,omitempty"`
}

func NewIntent(t NotificationType, recipient uuid.UUID, data map[string]any) NotificationIntent {
	return NotificationIntent{Type: t, Recipient: recipient, Data: data}
}

// Notification - сохранённое уведомление во входящих пользователя.
type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Payload     json.RawMessage
	IsRead      bool
	CreatedAt   time.Time
}
