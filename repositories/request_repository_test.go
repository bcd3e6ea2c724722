package repositories_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRequestRepo(t *testing.T) (sqlmock.Sqlmock, repositories.RequestRepository) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, repositories.NewPostgresRequestRepository(db)
}

func TestRequestUpdateStatus(t *testing.T) {
	t.Run("nil executor falls back to the connection", func(t *testing.T) {
		mock, repo := newMockRequestRepo(t)

		// Отклонение заявки идет вне транзакции: сервис не передает exec,
		// запись должна уйти через обычное соединение.
		mock.ExpectExec("UPDATE requests SET status").
			WithArgs("REJECTED", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), nil, 1, models.RequestStatusRejected)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit executor is used instead of the connection", func(t *testing.T) {
		_, repo := newMockRequestRepo(t)

		execDB, execMock, err := sqlmock.New()
		require.NoError(t, err)
		defer execDB.Close()

		execMock.ExpectExec("UPDATE requests SET status").
			WithArgs("ACCEPTED", 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.UpdateStatus(context.Background(), execDB, 2, models.RequestStatusAccepted)
		assert.NoError(t, err)
		assert.NoError(t, execMock.ExpectationsWereMet())
	})

	t.Run("zero affected rows means the request is gone", func(t *testing.T) {
		mock, repo := newMockRequestRepo(t)

		mock.ExpectExec("UPDATE requests SET status").
			WithArgs("REJECTED", 42).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), nil, 42, models.RequestStatusRejected)
		assert.ErrorIs(t, err, repositories.ErrRequestNotFound)
	})
}

func TestRequestDeleteByDancerWithoutExecutor(t *testing.T) {
	mock, repo := newMockRequestRepo(t)

	mock.ExpectExec("DELETE FROM requests WHERE sender_id").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.DeleteByDancer(context.Background(), nil, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
