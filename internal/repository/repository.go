// Package repository 提供数据访问层
package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/paiban/shiftplan/internal/database"
	"github.com/paiban/shiftplan/pkg/assignment"
	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
)

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Store PostgreSQL 存储，提供规划数据读取和分配替换
type Store struct {
	db *database.DB
}

var (
	_ planning.Source  = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
)

// NewStore 创建 PostgreSQL 存储
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// PostgreSQL 错误码
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// mapError 把可重试的事务冲突转换为 SCHEDULE_CONFLICT
func mapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected:
			return apperrors.Wrap(err, apperrors.CodeScheduleConflict, "排班分配被并发修改，请重试")
		}
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, message)
}
