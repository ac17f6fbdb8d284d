package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(name string, fn func()) {
	go func() {
		defer rh.recover(name)
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer rh.recover(name)
		fn(ctx)
	}()
}

// Run выполняет fn в текущей горутине, превращая panic в запись лога.
// Возвращает false, если fn запаниковала.
func (rh *RecoveryHandler) Run(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			rh.report(name, r)
			ok = false
		}
	}()
	fn()
	return true
}

func (rh *RecoveryHandler) recover(name string) {
	if r := recover(); r != nil {
		rh.report(name, r)
	}
}

func (rh *RecoveryHandler) report(name string, r interface{}) {
	metrics.RecordGoroutinePanic(name)
	rh.logger.WithFields(logrus.Fields{
		"goroutine": name,
		"panic":     r,
		"stack":     string(debug.Stack()),
	}).Error("panic in goroutine")
}

var DefaultRecoveryHandler = NewRecoveryHandler(logger.Log)

func SafeGo(name string, fn func()) {
	DefaultRecoveryHandler.SafeGo(name, fn)
}

func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, name, fn)
}

func Run(name string, fn func()) bool {
	return DefaultRecoveryHandler.Run(name, fn)
}
