package inbox_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/PaulBabatuyi/marketchat/internal/inbox"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
	"github.com/PaulBabatuyi/marketchat/internal/mocks"
)

func notification(id string, read bool) inbox.Notification {
	return inbox.Notification{ID: id, RecipientID: "me", Title: "t " + id, Read: read, CreatedAt: epoch}
}

func newBell(source inbox.NotificationSource, onChange func(inbox.BellState)) *inbox.Bell {
	log := logging.Nop()
	return inbox.NewBell(source, "me", inbox.BellOptions{Logger: &log, Limit: 5, OnChange: onChange})
}

func TestBell_StartLoadsAndCountsUnread(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)
	sub := &fakeSubscription{}

	source.EXPECT().SubscribeNotifications(gomock.Any(), "me", gomock.Any()).Return(sub, nil)
	source.EXPECT().ListNotifications(gomock.Any(), "me", 5).
		Return([]inbox.Notification{notification("n1", false), notification("n2", true), notification("n3", false)}, nil)

	b := newBell(source, nil)
	require.NoError(t, b.Start(context.Background()))

	state := b.Snapshot()
	require.Len(t, state.Items, 3)
	require.Equal(t, 2, state.Unread)

	b.Stop()
	require.True(t, sub.released.Load())
}

func TestBell_PushTriggersReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)

	var push func(inbox.Notification)
	source.EXPECT().SubscribeNotifications(gomock.Any(), "me", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, onEvent func(inbox.Notification)) (inbox.Subscription, error) {
			push = onEvent
			return &fakeSubscription{}, nil
		})
	gomock.InOrder(
		source.EXPECT().ListNotifications(gomock.Any(), "me", 5).
			Return([]inbox.Notification{notification("n1", true)}, nil),
		source.EXPECT().ListNotifications(gomock.Any(), "me", 5).
			Return([]inbox.Notification{notification("n2", false), notification("n1", true)}, nil),
	)

	var changes []inbox.BellState
	b := newBell(source, func(s inbox.BellState) { changes = append(changes, s) })
	require.NoError(t, b.Start(context.Background()))
	require.Zero(t, b.Snapshot().Unread)

	push(notification("n2", false))

	require.Equal(t, 1, b.Snapshot().Unread)
	require.Len(t, changes, 2)
	require.Equal(t, "n2", changes[1].Items[0].ID)
}

func TestBell_MarkReadWritesThenReloads(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)
	b := newBell(source, nil)

	gomock.InOrder(
		source.EXPECT().MarkNotificationRead(gomock.Any(), "n1").Return(nil),
		source.EXPECT().ListNotifications(gomock.Any(), "me", 5).
			Return([]inbox.Notification{notification("n1", true)}, nil),
	)

	require.NoError(t, b.MarkRead(context.Background(), "n1"))
	require.Zero(t, b.Snapshot().Unread)
}

func TestBell_MarkAllReadWritesThenReloads(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)
	b := newBell(source, nil)

	gomock.InOrder(
		source.EXPECT().MarkAllNotificationsRead(gomock.Any(), "me").Return(nil),
		source.EXPECT().ListNotifications(gomock.Any(), "me", 5).
			Return([]inbox.Notification{notification("n1", true), notification("n2", true)}, nil),
	)

	require.NoError(t, b.MarkAllRead(context.Background()))
	require.Zero(t, b.Snapshot().Unread)
	require.Len(t, b.Snapshot().Items, 2)
}

func TestBell_FailedWriteSkipsReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)
	b := newBell(source, nil)

	source.EXPECT().MarkAllNotificationsRead(gomock.Any(), "me").Return(errors.New("down"))

	require.Error(t, b.MarkAllRead(context.Background()))
}

func TestBell_SubscribeFailureStillLoads(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)

	source.EXPECT().SubscribeNotifications(gomock.Any(), "me", gomock.Any()).Return(nil, errors.New("feed down"))
	source.EXPECT().ListNotifications(gomock.Any(), "me", 5).
		Return([]inbox.Notification{notification("n1", false)}, nil)

	b := newBell(source, nil)
	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, 1, b.Snapshot().Unread)
	b.Stop()
}

func TestBell_StopIgnoresLatePushes(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockNotificationSource(ctrl)

	var push func(inbox.Notification)
	source.EXPECT().SubscribeNotifications(gomock.Any(), "me", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, onEvent func(inbox.Notification)) (inbox.Subscription, error) {
			push = onEvent
			return &fakeSubscription{}, nil
		})
	source.EXPECT().ListNotifications(gomock.Any(), "me", 5).Return(nil, nil).Times(1)

	b := newBell(source, nil)
	require.NoError(t, b.Start(context.Background()))
	b.Stop()

	push(notification("late", false))

	require.ErrorIs(t, b.Start(context.Background()), inbox.ErrClosed)
}
