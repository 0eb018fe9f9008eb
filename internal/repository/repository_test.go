package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"fastpay-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestMessagesCreateIfAbsent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresMessagesRepo(db)

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("dev-1", int64(100), domain.MessageReceived, "+1", "hi", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.CreateIfAbsent(context.Background(), &domain.Message{
		DeviceID: "dev-1", Timestamp: 100,
		MessageType: domain.MessageReceived, Phone: "+1", Body: "hi",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessagesCreateIfAbsentConflictSkips(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresMessagesRepo(db)

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("dev-1", int64(100), domain.MessageReceived, "+1", "hi", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.CreateIfAbsent(context.Background(), &domain.Message{
		DeviceID: "dev-1", Timestamp: 100,
		MessageType: domain.MessageReceived, Phone: "+1", Body: "hi",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationsUpsertReportsInsertVsUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresNotificationsRepo(db)

	n := &domain.Notification{
		DeviceID: "dev-1", Timestamp: 100, PackageName: "com.app",
		Title: sql.NullString{String: "A", Valid: true},
	}

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("dev-1", int64(100), "com.app", n.Title, n.Text, n.Extra).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
	created, err := repo.Upsert(context.Background(), n)
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("dev-1", int64(100), "com.app", n.Title, n.Text, n.Extra).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))
	created, err = repo.Upsert(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessagesListByDevice(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresMessagesRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM messages`).
		WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT id::text, device_id, timestamp`).
		WithArgs("dev-1", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "device_id", "timestamp", "message_type", "phone", "body", "read", "created_at",
		}).
			AddRow("m-2", "dev-1", int64(200), domain.MessageSent, "+1", "later", true, time.Now()).
			AddRow("m-1", "dev-1", int64(100), domain.MessageReceived, "+1", "first", false, time.Now()))

	out, total, err := repo.ListByDevice(context.Background(), "dev-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, out, 2)
	assert.Equal(t, int64(200), out[0].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDevicesSetSyncStatusTruncatesError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDevicesRepo(db, zap.NewNop())

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	want := string(long[:500])

	mock.ExpectExec(`UPDATE devices`).
		WithArgs("dev-1", domain.SyncStatusFailed, sql.NullString{String: want, Valid: true}, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetSyncStatus(context.Background(), "dev-1", domain.SyncStatusFailed, string(long))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogsDeleteOlderThan(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresSyncLogsRepo(db)

	cutoff := time.Now().AddDate(0, 0, -30)
	mock.ExpectExec(`DELETE FROM sync_logs`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
