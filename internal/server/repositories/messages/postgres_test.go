package messages

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/messagely/internal/common"
	"github.com/dmitrijs2005/messagely/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQ = `(?s)^INSERT\s+INTO\s+messages\s*\(from_username,\s*to_username,\s*body,\s*sent_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*from_username,\s*to_username,\s*body,\s*sent_at\s*$`
	getQ    = `(?s)^SELECT\s+m\.id,.*FROM\s+messages\s+AS\s+m\s+JOIN\s+users\s+AS\s+f\s+ON\s+m\.from_username\s*=\s*f\.username\s+JOIN\s+users\s+AS\s+t\s+ON\s+m\.to_username\s*=\s*t\.username\s+WHERE\s+m\.id\s*=\s*\$1\s*$`
	readQ   = `(?s)^UPDATE\s+messages\s+SET\s+read_at\s*=\s*COALESCE\(read_at,\s*\$1\)\s+WHERE\s+id\s*=\s*\$2\s+RETURNING\s+id,\s*read_at\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func detailCols() []string {
	return []string{"id", "body", "sent_at", "read_at",
		"f_username", "f_first_name", "f_last_name", "f_phone",
		"t_username", "t_first_name", "t_last_name", "t_phone"}
}

func TestCreate(t *testing.T) {
	sent := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	in := &models.Message{FromUsername: "test1", ToUsername: "test2", Body: "hello world!", SentAt: sent}

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(insertQ).
			WithArgs("test1", "test2", "hello world!", sent).
			WillReturnRows(sqlmock.NewRows([]string{"id", "from_username", "to_username", "body", "sent_at"}).
				AddRow(int64(7), "test1", "test2", "hello world!", sent))

		got, err := repo.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
		assert.Equal(t, "test2", got.ToUsername)
		assert.Equal(t, sent, got.SentAt)
		assert.Nil(t, got.ReadAt)
	})

	t.Run("unknown party", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(insertQ).WillReturnError(&pgconn.PgError{Code: "23503"})

		_, err := repo.Create(context.Background(), in)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

		_, err := repo.Create(context.Background(), in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error: db down")
	})
}

func TestGet(t *testing.T) {
	sent := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("unread", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(getQ).WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows(detailCols()).
			AddRow(int64(7), "hello world!", sent, nil,
				"test1", "Test1", "Testy1", "+14155550000",
				"test2", "Test2", "Testy2", "+14155550002"))

		got, err := repo.Get(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "hello world!", got.Body)
		assert.Nil(t, got.ReadAt)
		assert.Equal(t, models.Party{Username: "test1", FirstName: "Test1", LastName: "Testy1", Phone: "+14155550000"}, got.FromUser)
		assert.Equal(t, models.Party{Username: "test2", FirstName: "Test2", LastName: "Testy2", Phone: "+14155550002"}, got.ToUser)
	})

	t.Run("read", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		read := sent.Add(time.Minute)
		mock.ExpectQuery(getQ).WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows(detailCols()).
			AddRow(int64(7), "hello world!", sent, read,
				"test1", "Test1", "Testy1", "+1", "test2", "Test2", "Testy2", "+2"))

		got, err := repo.Get(context.Background(), 7)
		require.NoError(t, err)
		require.NotNil(t, got.ReadAt)
		assert.Equal(t, read, *got.ReadAt)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(getQ).WithArgs(int64(404)).WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), 404)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestMarkRead(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(readQ).WithArgs(at, int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "read_at"}).AddRow(int64(7), at))

		got, err := repo.MarkRead(context.Background(), 7, at)
		require.NoError(t, err)
		assert.Equal(t, &models.ReadReceipt{ID: 7, ReadAt: at}, got)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(readQ).WithArgs(at, int64(8)).WillReturnError(sql.ErrNoRows)

		_, err := repo.MarkRead(context.Background(), 8, at)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(readQ).WithArgs(at, int64(7)).WillReturnError(errors.New("db down"))

		_, err := repo.MarkRead(context.Background(), 7, at)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db error")
	})
}
