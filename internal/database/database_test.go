package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return Wrap(raw), mock
}

func TestTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM assignments").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := db.Transaction(context.Background(), &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM assignments")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), nil, func(*sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollbackFailure(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("连接已断开"))

	err := db.Transaction(context.Background(), nil, func(*sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "事务回滚失败")
}

func TestTransaction_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "oops", func() {
		_ = db.Transaction(context.Background(), nil, func(*sql.Tx) error { panic("oops") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_BeginFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := db.Transaction(context.Background(), nil, func(*sql.Tx) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "开始事务失败")
	assert.False(t, called)
}

func TestHealth(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.NoError(t, db.Health(context.Background()))
	assert.ErrorContains(t, db.Health(context.Background()), "数据库连接测试失败")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryContext(t *testing.T) {
	db, mock := newMockDB(t)
	assert.Equal(t, defaultSlowThreshold, db.slow)

	// 阈值为0时不记录慢查询，查询照常执行
	db.slow = 0
	mock.ExpectQuery("SELECT id FROM schedules").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))

	rows, err := db.QueryContext(context.Background(), "SELECT id FROM schedules")
	require.NoError(t, err)
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateQuery(short))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Less(t, len(truncateQuery(string(long))), 300)
}
