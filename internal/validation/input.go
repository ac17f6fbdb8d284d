// Package validation проверяет входные данные запросов: общие ограничения
// и доменные теги для go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

const (
	MaxMessageLength   = 5000
	MaxNotesLength     = 2000
	MaxEvidenceLength  = 5000
	MaxMassRecipients  = 200
	MaxUploadNameRunes = 255
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Register добавляет доменные теги в экземпляр валидатора (в том числе в движок gin).
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"package_type": func(fl validator.FieldLevel) bool {
			_, err := valueobject.NewPackageType(fl.Field().String())
			return err == nil
		},
		"paid_plan": func(fl validator.FieldLevel) bool {
			return entitlement.Plan(fl.Field().String()).IsPaid()
		},
		"dispute_decision": func(fl validator.FieldLevel) bool {
			_, err := valueobject.NewDisputeResolution(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("validation: register %s: %w", tag, err)
		}
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return nil
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		if err := Register(validate); err != nil {
			panic(err)
		}
	})
	return validate
}

// Struct проверяет структуру по тегам validate.
func Struct(s any) error {
	if err := instance().Struct(s); err != nil {
		return FromError(err)
	}
	return nil
}

// FromError превращает ошибку валидатора или биндинга в VALIDATION_ERROR с перечнем полей.
func FromError(err error) *apperror.AppError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректные данные запроса")
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldName(fe)] = describe(fe)
	}
	return apperror.New(apperror.ErrCodeValidation, "некорректные данные запроса").WithDetail("fields", fields)
}

func fieldName(fe validator.FieldError) string {
	if fe.Field() != "" {
		return fe.Field()
	}
	return strings.ToLower(fe.StructField())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min", "gte", "gt":
		return "значение меньше допустимого: " + fe.Param()
	case "max", "lte", "lt":
		return "значение больше допустимого: " + fe.Param()
	case "uuid", "uuid4":
		return "ожидается UUID"
	case "package_type":
		return "неизвестный пакет услуг"
	case "paid_plan":
		return "ожидается платный тариф: basic, pro или premium"
	case "dispute_decision":
		return "ожидается release или refund"
	default:
		return "не прошло проверку " + fe.Tag()
	}
}
