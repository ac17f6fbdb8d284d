package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/validation"
)

type request struct {
	Package  string `json:"package_type" validate:"required,package_type"`
	Plan     string `json:"plan" validate:"omitempty,paid_plan"`
	Decision string `json:"decision" validate:"omitempty,dispute_decision"`
	Amount   int64  `json:"amount" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, validation.Struct(request{Package: "live_event", Plan: "pro", Decision: "refund", Amount: 1}))

	err := validation.Struct(request{Package: "concert", Plan: "none", Decision: "split"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	fields, ok := appErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "неизвестный пакет услуг", fields["package_type"])
	assert.Contains(t, fields, "plan")
	assert.Contains(t, fields, "decision")
	assert.Contains(t, fields, "amount")
}
