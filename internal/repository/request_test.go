package repository

import (
	"context"
	"errors"
	"testing"

	"partrack/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB backs GORM with sqlmock so infrastructure failures can be
// injected; the happy paths are covered by the service tests on sqlite.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestGetByIDWrapsDriverErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "requests"`).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.GetByID(context.Background(), "0d9bb357-7d45-4a6c-9a29-f63ef0a6f9ba")
	assert.Equal(t, models.CodeInternal, appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMapsMissingRowToNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "0d9bb357-7d45-4a6c-9a29-f63ef0a6f9ba")
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatusWrapsDriverErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total FROM "requests"`).
		WillReturnError(errors.New("server closed the connection"))

	_, err := repo.CountByStatus(context.Background())
	assert.Equal(t, models.CodeInternal, appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{
		Email:       "jamie@example.com",
		DisplayName: "Jamie Park",
		Password:    "hashed",
	})
	assert.Equal(t, models.CodeValidation, appErrCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
