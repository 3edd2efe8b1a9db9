package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgStoreInsertIgnoresDuplicates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n := ForAppointment(janeInserted(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	mock.ExpectExec("INSERT INTO notifications .+ ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(n.ID, n.Title, n.Message, n.Type, n.RelatedID, false, n.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, newPgStoreWithDB(mock).Insert(context.Background(), n))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	related := uuid.NewString()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "title", "message", "type", "related_id", "is_read", "created_at"}).
		AddRow(uuid.New(), "New Appointment Booked", "Jane Doe booked for 2025-06-01 at 9:00 AM", TypeAppointment, &related, false, now).
		AddRow(uuid.New(), "Maintenance", "Back at 10", TypeSystem, (*string)(nil), true, now.Add(-time.Hour))

	mock.ExpectQuery("FROM notifications").WithArgs(20).WillReturnRows(rows)

	list, err := newPgStoreWithDB(mock).ListRecent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, TypeAppointment, list[0].Type)
	assert.Nil(t, list[1].RelatedID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreMarkRead(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ids := []uuid.UUID{uuid.New()}
	mock.ExpectExec("WHERE is_read = false$").WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec("id = ANY").WithArgs(ids).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := newPgStoreWithDB(mock)
	n, err := store.MarkRead(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = store.MarkRead(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
