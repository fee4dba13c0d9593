package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_ToggleOccupancy(t *testing.T) {
	now := time.Now()
	recordColumns := []string{"id", "person_id", "lab_name", "entry_time", "exit_time"}

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedAction   Action
		expectedRecordID int64
		expectedErr      error
	}{
		{
			name: "No open record, should open one",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lab_records"`)).
					WithArgs(7, "Main Lab", 1).
					WillReturnRows(sqlmock.NewRows(recordColumns))
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "lab_records"`)).
					WithArgs(7, "Main Lab", Any{}, nil).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
				mock.ExpectCommit()
			},
			expectedAction:   ActionEntry,
			expectedRecordID: 11,
		},
		{
			name: "Open record exists, should close it",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lab_records"`)).
					WithArgs(7, "Main Lab", 1).
					WillReturnRows(sqlmock.NewRows(recordColumns).
						AddRow(11, 7, "Main Lab", now.Add(-time.Hour), nil))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "lab_records" SET "exit_time"=$1`)).
					WithArgs(Any{}, 11).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			expectedAction:   ActionExit,
			expectedRecordID: 11,
		},
		{
			name: "Open record closed concurrently, should roll back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lab_records"`)).
					WithArgs(7, "Main Lab", 1).
					WillReturnRows(sqlmock.NewRows(recordColumns).
						AddRow(11, 7, "Main Lab", now.Add(-time.Hour), nil))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "lab_records" SET "exit_time"=$1`)).
					WithArgs(Any{}, 11).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			expectedErr: ErrToggleConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			tr, err := store.ToggleOccupancy(context.Background(), 7, "Main Lab", now)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedAction, tr.Action)
				assert.Equal(t, tc.expectedRecordID, tr.Record.ID)
				assert.Equal(t, now, tr.At)
				assert.Equal(t, tc.expectedAction == ActionEntry, tr.Record.IsOpen())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_GetPersonNotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "people" WHERE "people"."id" = $1`)).
		WithArgs(99, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	_, err := store.GetPerson(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPersonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
