package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"partrack/internal/database"
	"partrack/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupJobIDTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestAllocateSequence(t *testing.T) {
	db := setupJobIDTestDB(t)
	allocator := NewJobIDAllocator(db, "PAR")
	allocator.now = fixedClock(2026)

	first, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAR-2026-0001", first)

	second, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAR-2026-0002", second)

	// The counter row is the single source of truth.
	var counter models.JobIDCounter
	require.NoError(t, db.First(&counter, models.JobIDCounterID).Error)
	assert.Equal(t, 2026, counter.CurrentYear)
	assert.Equal(t, 2, counter.CurrentSequence)
}

func TestAllocateYearRollover(t *testing.T) {
	db := setupJobIDTestDB(t)
	allocator := NewJobIDAllocator(db, "PAR")
	allocator.now = fixedClock(2026)

	for i := 0; i < 3; i++ {
		_, err := allocator.Allocate(context.Background())
		require.NoError(t, err)
	}

	allocator.now = fixedClock(2027)
	got, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAR-2027-0001", got)

	got, err = allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAR-2027-0002", got)
}

func TestAllocatePadsAndWidens(t *testing.T) {
	db := setupJobIDTestDB(t)
	allocator := NewJobIDAllocator(db, "PAR")
	allocator.now = fixedClock(2026)

	require.NoError(t, db.Create(&models.JobIDCounter{
		ID:              models.JobIDCounterID,
		CurrentYear:     2026,
		CurrentSequence: 9999,
	}).Error)

	got, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAR-2026-10000", got)
}

func TestAllocateCustomPrefix(t *testing.T) {
	db := setupJobIDTestDB(t)
	allocator := NewJobIDAllocator(db, "REQ")
	allocator.now = fixedClock(2026)

	got, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-0001", got)
}

func TestAllocateBurstIsDistinctAndGapless(t *testing.T) {
	db := setupJobIDTestDB(t)
	allocator := NewJobIDAllocator(db, "PAR")
	allocator.now = fixedClock(2026)

	const n = 25
	seen := make(map[string]bool, n)
	for i := 1; i <= n; i++ {
		got, err := allocator.Allocate(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[got], "identifier %s handed out twice", got)
		seen[got] = true
		assert.Equal(t, fmt.Sprintf("PAR-2026-%04d", i), got)
	}
}

// Allocation must lock the counter row so concurrent submitters serialize.
// sqlite has no FOR UPDATE, so the emitted SQL is checked against a mocked
// postgres connection instead.
func TestAllocateLocksCounterRowOnPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	allocator := NewJobIDAllocator(db, "PAR")
	allocator.now = fixedClock(2026)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "job_id_counters" WHERE .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "current_year", "current_sequence"}).
			AddRow(models.JobIDCounterID, 2026, 7))
	mock.ExpectExec(`UPDATE "job_id_counters"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := allocator.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PAR-2026-0008", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
