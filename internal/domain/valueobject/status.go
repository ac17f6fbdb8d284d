package valueobject

import "github.com/ignatzorin/collab-backend/internal/pkg/apperror"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusAccepted, BookingStatusDeclined, BookingStatusCancelled},
	BookingStatusAccepted:  {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusDeclined:  {},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusDeclined || s == BookingStatusCancelled || s == BookingStatusCompleted
}

func (s BookingStatus) CanTransitionTo(newStatus BookingStatus) bool {
	return canTransition(bookingTransitions, s, newStatus)
}

func NewBookingStatus(status string) (BookingStatus, error) {
	s := BookingStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус бронирования")
	}
	return s, nil
}

type DeliveryStatus string

const (
	DeliveryStatusPending           DeliveryStatus = "pending"
	DeliveryStatusInProgress        DeliveryStatus = "in_progress"
	DeliveryStatusDelivered         DeliveryStatus = "delivered"
	DeliveryStatusRevisionRequested DeliveryStatus = "revision_requested"
	DeliveryStatusConfirmed         DeliveryStatus = "confirmed"
)

// Повторная сдача после запроса правок - единственный обратный переход.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:           {DeliveryStatusInProgress, DeliveryStatusDelivered},
	DeliveryStatusInProgress:        {DeliveryStatusDelivered},
	DeliveryStatusDelivered:         {DeliveryStatusConfirmed, DeliveryStatusRevisionRequested},
	DeliveryStatusRevisionRequested: {DeliveryStatusDelivered},
	DeliveryStatusConfirmed:         {},
}

func (s DeliveryStatus) IsValid() bool {
	_, ok := deliveryTransitions[s]
	return ok
}

func (s DeliveryStatus) CanTransitionTo(newStatus DeliveryStatus) bool {
	return canTransition(deliveryTransitions, s, newStatus)
}

type EscrowStatus string

const (
	EscrowStatusPendingDeposit EscrowStatus = "pending_deposit"
	EscrowStatusDepositPaid    EscrowStatus = "deposit_paid"
	EscrowStatusCompleted      EscrowStatus = "completed"
	EscrowStatusRefunded       EscrowStatus = "refunded"
	EscrowStatusDisputed       EscrowStatus = "disputed"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusPendingDeposit, EscrowStatusDepositPaid, EscrowStatusCompleted, EscrowStatusRefunded, EscrowStatusDisputed:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusDisputed PaymentStatus = "disputed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusDisputed, PaymentStatusRefunded:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeRelease TransactionType = "release"
	TransactionTypeRefund  TransactionType = "refund"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeRelease || t == TransactionTypeRefund
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusProcessed TransactionStatus = "processed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:   {TransactionStatusProcessed, TransactionStatusFailed},
	TransactionStatusProcessed: {},
	TransactionStatusFailed:    {},
}

func (s TransactionStatus) CanTransitionTo(newStatus TransactionStatus) bool {
	return canTransition(transactionTransitions, s, newStatus)
}

type DisputeStatus string

const (
	DisputeStatusPendingResponse    DisputeStatus = "pending_response"
	DisputeStatusPendingAdminReview DisputeStatus = "pending_admin_review"
	DisputeStatusResolved           DisputeStatus = "resolved"
)

// Администратор может закрыть спор и без ответа второй стороны.
var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusPendingResponse:    {DisputeStatusPendingAdminReview, DisputeStatusResolved},
	DisputeStatusPendingAdminReview: {DisputeStatusResolved},
	DisputeStatusResolved:           {},
}

func (s DisputeStatus) IsOpen() bool {
	return s != DisputeStatusResolved
}

func (s DisputeStatus) CanTransitionTo(newStatus DisputeStatus) bool {
	return canTransition(disputeTransitions, s, newStatus)
}

type DisputeResolution string

const (
	DisputeResolutionRelease DisputeResolution = "release"
	DisputeResolutionRefund  DisputeResolution = "refund"
)

func NewDisputeResolution(value string) (DisputeResolution, error) {
	r := DisputeResolution(value)
	if r != DisputeResolutionRelease && r != DisputeResolutionRefund {
		return "", apperror.New(apperror.ErrCodeValidation, "решение по спору должно быть release или refund")
	}
	return r, nil
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type PackageType string

const (
	PackageUnboxingReview PackageType = "unboxing_review"
	PackageSocialBoost    PackageType = "social_boost"
	PackageMeetGreet      PackageType = "meet_greet"
	PackageLiveEvent      PackageType = "live_event"
)

func NewPackageType(value string) (PackageType, error) {
	p := PackageType(value)
	switch p {
	case PackageUnboxingReview, PackageSocialBoost, PackageMeetGreet, PackageLiveEvent:
		return p, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип пакета")
}

type Role string

const (
	RoleBrand   Role = "brand"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleBrand || r == RoleCreator || r == RoleAdmin
}

func canTransition[S comparable](transitions map[S][]S, from, to S) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
