package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestEmitWritesEnvelope(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	orderID := uuid.New()
	userID := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: &userID, Role: "customer"},
			Data:          map[string]any{"order_id": orderID.String()},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventOrderCreated, rows[0].EventType)
	require.Nil(t, rows[0].PublishedAt)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	require.Equal(t, currentEnvelopeVersion, env.Version)
	require.NotEmpty(t, env.EventID)
	require.NotNil(t, env.Actor)
	require.Equal(t, userID, *env.Actor.UserID)
	require.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(env.Data))
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	orderID := uuid.New()
	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.ListByAggregate(context.Background(), orderID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEmitValidatesEvent(t *testing.T) {
	_, conn := dbtest.Client(t)
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	require.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:     enums.OutboxEventType("order.lost"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	}))
	require.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
	}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	pending := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	exhausted := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), AttemptCount: 3}
	require.NoError(t, repo.Insert(conn, pending))
	require.NoError(t, repo.Insert(conn, exhausted))

	var fetched []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 1)
	require.Equal(t, pending.AggregateID, fetched[0].AggregateID)

	id := fetched[0].ID
	require.NoError(t, repo.MarkFailedTx(conn, id, errors.New("unavailable")))
	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", id).Error)
	require.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	require.Equal(t, "unavailable", *row.LastError)

	require.NoError(t, repo.MarkPublishedTx(conn, id))
	require.NoError(t, conn.First(&row, "id = ?", id).Error)
	require.NotNil(t, row.PublishedAt)

	var none []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		none, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Empty(t, none)

	deleted, err := repo.DeletePublishedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	_, conn := dbtest.Client(t)
	repo := NewDLQRepository(conn)

	long := make([]byte, maxLastErrorLen+200)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.InsertTx(conn, entry))

	var stored models.OutboxDLQ
	require.NoError(t, conn.First(&stored, "event_id = ?", entry.EventID).Error)
	require.Len(t, *stored.ErrorMessage, maxLastErrorLen)
}
