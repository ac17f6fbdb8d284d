package notification_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/notification"
)

func TestInbox(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotificationRepository()
	inbox := notification.NewInboxUseCase(repo)

	me := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	other := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()}

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Notification{RecipientID: me.ProfileID, Payload: []byte(`{"event":"booking_created"}`)}))
	}
	foreign := &entity.Notification{RecipientID: other.ProfileID, Payload: []byte(`{"event":"deposit_paid"}`)}
	require.NoError(t, repo.Create(ctx, foreign))

	items, err := inbox.List(ctx, me, 0, -5, false)
	require.NoError(t, err)
	require.Len(t, items, 3)

	count, err := inbox.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, inbox.MarkAsRead(ctx, me, items[0].ID))
	// повторная отметка ничего не меняет
	require.NoError(t, inbox.MarkAsRead(ctx, me, items[0].ID))

	unread, err := inbox.List(ctx, me, 10, 0, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	err = inbox.MarkAsRead(ctx, me, foreign.ID)
	assert.True(t, apperror.IsNotFound(err))
	err = inbox.MarkAsRead(ctx, me, uuid.New())
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, inbox.MarkAllAsRead(ctx, me))
	count, err = inbox.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = inbox.CountUnread(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
