package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

const validReason = "работа сдана не в том формате, что оговаривали"

func TestNewDispute_Deadlines(t *testing.T) {
	b, brand, _ := newTestBooking(t)

	d, err := NewDispute(b, brand, validReason, "", testNow)
	require.NoError(t, err)

	assert.Equal(t, valueobject.DisputeStatusPendingResponse, d.Status)
	assert.Equal(t, testNow.Add(72*time.Hour), d.ResponseDeadline)
	assert.Equal(t, testNow.Add(168*time.Hour), d.ResolutionDeadline)
	assert.Nil(t, d.Evidence)
	assert.Equal(t, valueobject.RoleBrand, d.OpenedByRole)
}

func TestNewDispute_Validation(t *testing.T) {
	b, brand, _ := newTestBooking(t)

	_, err := NewDispute(b, brand, "коротко", "", testNow)
	assert.True(t, apperror.IsValidation(err))

	stranger := Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()}
	_, err = NewDispute(b, stranger, validReason, "", testNow)
	assert.True(t, apperror.IsForbidden(err))

	b.Status = valueobject.BookingStatusCompleted
	_, err = NewDispute(b, brand, validReason, "", testNow)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestDispute_RespondOnlyByOtherParty(t *testing.T) {
	b, brand, creator := newTestBooking(t)
	d, err := NewDispute(b, brand, validReason, "скриншоты в переписке", testNow)
	require.NoError(t, err)
	require.NotNil(t, d.Evidence)

	assert.True(t, apperror.IsForbidden(d.Respond(b, brand, "сам себе отвечаю", testNow)))

	require.NoError(t, d.Respond(b, creator, "формат согласовали в чате", testNow))
	assert.Equal(t, valueobject.DisputeStatusPendingAdminReview, d.Status)
	require.NotNil(t, d.ResponseSubmittedAt)

	assert.True(t, apperror.IsInvalidTransition(d.Respond(b, creator, "ещё раз", testNow)))
}

func TestDispute_ResolveOnce(t *testing.T) {
	b, brand, _ := newTestBooking(t)
	d, err := NewDispute(b, brand, validReason, "", testNow)
	require.NoError(t, err)

	assert.True(t, apperror.IsForbidden(d.Resolve(brand, valueobject.DisputeResolutionRefund, "", testNow)))

	admin := Principal{UserID: uuid.New(), Role: valueobject.RoleAdmin}
	require.NoError(t, d.Resolve(admin, valueobject.DisputeResolutionRefund, "возврат бренду", testNow))
	assert.False(t, d.IsOpen())
	assert.Equal(t, valueobject.DisputeResolutionRefund, *d.Resolution)

	err = d.Resolve(admin, valueobject.DisputeResolutionRelease, "", testNow)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestDispute_OverdueIsAdvisory(t *testing.T) {
	b, brand, _ := newTestBooking(t)
	d, err := NewDispute(b, brand, validReason, "", testNow)
	require.NoError(t, err)

	later := testNow.Add(8 * 24 * time.Hour)
	assert.True(t, d.IsResponseOverdue(later))
	assert.True(t, d.IsResolutionOverdue(later))
	assert.Equal(t, valueobject.DisputeStatusPendingResponse, d.Status)
}
