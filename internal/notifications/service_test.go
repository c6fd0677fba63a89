package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func seedNotifications(t *testing.T, repo Repository, n int) []models.Notification {
	t.Helper()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.Notification, 0, n)
	for i := 0; i < n; i++ {
		row := models.Notification{
			Type:      enums.NotificationTypeLowStock,
			Title:     "Low stock",
			Message:   "message",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), &row))
		out = append(out, row)
	}
	return out
}

func TestServiceListPagesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	rows := seedNotifications(t, repo, 3)

	first, err := svc.List(context.Background(), ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, rows[2].ID, first.Items[0].ID)
	require.Equal(t, rows[1].ID, first.Items[1].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{Params: pagination.Params{Limit: 2, Cursor: first.Cursor}})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, rows[0].ID, second.Items[0].ID)
	require.Empty(t, second.Cursor)
}

func TestServiceListUnreadOnly(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	rows := seedNotifications(t, repo, 2)

	require.NoError(t, svc.MarkRead(context.Background(), rows[1].ID))

	result, err := svc.List(context.Background(), ListParams{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, rows[0].ID, result.Items[0].ID)

	all, err := svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.NotNil(t, all.Items[0].ReadAt)
}

func TestServiceMarkReadIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	rows := seedNotifications(t, repo, 1)

	require.NoError(t, svc.MarkRead(context.Background(), rows[0].ID))
	require.NoError(t, svc.MarkRead(context.Background(), rows[0].ID))

	err = svc.MarkRead(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = svc.MarkRead(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceListInvalidCursor(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{Params: pagination.Params{Cursor: "bad"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type failingRepository struct {
	Repository
}

func (failingRepository) List(context.Context, listNotificationsParams) ([]models.Notification, error) {
	return nil, errors.New("connection reset")
}

func TestServiceListSurfacesStorageErrors(t *testing.T) {
	svc, err := NewService(failingRepository{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
