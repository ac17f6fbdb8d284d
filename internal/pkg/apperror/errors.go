package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"

	ErrCodeEntitlementDenied   ErrorCode = "ENTITLEMENT_DENIED"
	ErrCodeQuotaExceeded       ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeQuotaCheckFailed    ErrorCode = "QUOTA_CHECK_FAILED"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeDisputeActive       ErrorCode = "DISPUTE_ACTIVE"
	ErrCodeLedgerInvariant     ErrorCode = "LEDGER_INVARIANT_VIOLATION"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с предопределёнными значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// WithDetail возвращает копию ошибки с дополнительным полем для клиента.
func (e *AppError) WithDetail(key string, value any) *AppError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Internal сообщает, нужно ли скрывать сообщение от пользователя.
func (e *AppError) Internal() bool {
	return e.HTTPStatus >= http.StatusInternalServerError && e.Code != ErrCodeQuotaCheckFailed
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeEntitlementDenied:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeDisputeActive, ErrCodeConcurrencyConflict:
		return http.StatusConflict
	case ErrCodeQuotaExceeded, ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeQuotaCheckFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку, если это не AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return HasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

func IsEntitlementDenied(err error) bool {
	return HasCode(err, ErrCodeEntitlementDenied)
}

func IsQuotaExceeded(err error) bool {
	return HasCode(err, ErrCodeQuotaExceeded)
}

func IsQuotaCheckFailed(err error) bool {
	return HasCode(err, ErrCodeQuotaCheckFailed)
}

func IsInvalidTransition(err error) bool {
	return HasCode(err, ErrCodeInvalidTransition)
}

func IsDisputeActive(err error) bool {
	return HasCode(err, ErrCodeDisputeActive)
}

func IsLedgerInvariant(err error) bool {
	return HasCode(err, ErrCodeLedgerInvariant)
}

func IsConcurrencyConflict(err error) bool {
	return HasCode(err, ErrCodeConcurrencyConflict)
}

// EntitlementDenied формирует отказ с названием недостающей возможности тарифа.
func EntitlementDenied(capability string) *AppError {
	return New(ErrCodeEntitlementDenied, fmt.Sprintf("текущий тариф не включает возможность %s", capability)).
		WithDetail("capability", capability)
}

// QuotaExceeded формирует отказ по исчерпанному лимиту.
func QuotaExceeded(counter string, used, limit int64) *AppError {
	return New(ErrCodeQuotaExceeded, "лимит на текущий период исчерпан").
		WithDetail("counter", counter).
		WithDetail("used", used).
		WithDetail("limit", limit)
}

func QuotaCheckFailed(err error) *AppError {
	return Wrap(err, ErrCodeQuotaCheckFailed, "не удалось проверить лимит, повторите попытку")
}

func InvalidTransition(message string) *AppError {
	return New(ErrCodeInvalidTransition, message)
}

func LedgerInvariant(message string) *AppError {
	return New(ErrCodeLedgerInvariant, message)
}

var (
	ErrBookingNotFound      = New(ErrCodeNotFound, "бронирование не найдено")
	ErrDisputeNotFound      = New(ErrCodeNotFound, "спор не найден")
	ErrConversationNotFound = New(ErrCodeNotFound, "беседа не найдена")
	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")
	ErrNotParticipant       = New(ErrCodeForbidden, "вы не являетесь участником бронирования")
	ErrDisputeActive        = New(ErrCodeDisputeActive, "по бронированию открыт спор")
	ErrConcurrencyConflict  = New(ErrCodeConcurrencyConflict, "бронирование изменено параллельно, обновите данные и повторите")
)
