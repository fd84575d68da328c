package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
)

// GetSchedule 查询属于 owner 的排班计划，不存在时返回 nil, nil
func (r *Store) GetSchedule(ctx context.Context, scheduleID, ownerID uuid.UUID) (*model.ScheduleWindow, error) {
	query := `
		SELECT id, owner_id, team_id, name, start_time, end_time,
			max_hours_per_employee, max_shifts_per_employee, max_hours_per_shift,
			created_at, updated_at
		FROM schedules
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`

	s := &model.ScheduleWindow{}
	err := r.db.QueryRowContext(ctx, query, scheduleID, ownerID).Scan(
		&s.ID, &s.OwnerID, &s.TeamID, &s.Name, &s.Start, &s.End,
		&s.MaxHoursPerEmployee, &s.MaxShiftsPerEmployee, &s.MaxHoursPerShift,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询排班计划失败: %w", err)
	}

	return s, nil
}

// ListAssignments 查询排班计划已持久化的分配
func (r *Store) ListAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*model.Assignment, error) {
	query := `
		SELECT id, schedule_id, employee_id, shift_id, start_time, end_time, created_at, updated_at
		FROM assignments
		WHERE schedule_id = $1
		ORDER BY start_time, employee_id
	`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历排班分配失败: %w", err)
	}

	return assignments, nil
}

// ReplaceAssignments 在一个可串行化事务内删除旧分配并写入新分配
// 先锁定排班计划行，同一计划的并发替换不会交错执行
func (r *Store) ReplaceAssignments(ctx context.Context, scheduleID uuid.UUID, assignments []*model.Assignment) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}

	err := r.db.Transaction(ctx, opts, func(tx *sql.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM schedules WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", scheduleID,
		).Scan(&locked)
		if err == sql.ErrNoRows {
			return apperrors.NotFound("schedule", scheduleID.String())
		}
		if err != nil {
			return fmt.Errorf("锁定排班计划失败: %w", err)
		}

		// 校验之后班次可能已被删除，持锁后再确认一次
		if err := checkShifts(ctx, tx, scheduleID, assignments); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE schedule_id = $1", scheduleID); err != nil {
			return fmt.Errorf("删除排班分配失败: %w", err)
		}

		query := `
			INSERT INTO assignments (
				id, schedule_id, employee_id, shift_id, start_time, end_time, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		now := time.Now()
		for _, a := range assignments {
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			if a.CreatedAt.IsZero() {
				a.CreatedAt = now
			}
			a.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, query,
				a.ID, scheduleID, a.EmployeeID, a.ShiftID, a.Start, a.End, a.CreatedAt, a.UpdatedAt,
			); err != nil {
				return fmt.Errorf("创建排班分配失败: %w", err)
			}
		}
		return nil
	})

	return mapError(err, "替换排班分配失败")
}

// checkShifts 确认分配引用的班次仍属于该排班计划
func checkShifts(ctx context.Context, tx *sql.Tx, scheduleID uuid.UUID, assignments []*model.Assignment) error {
	ids := referencedShifts(assignments)
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM shifts WHERE schedule_id = $1 AND id = ANY($2::uuid[]) AND deleted_at IS NULL",
		scheduleID, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("查询班次失败: %w", err)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("扫描班次失败: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("遍历班次失败: %w", err)
	}

	if id, ok := firstUnknownShift(assignments, func(id uuid.UUID) bool {
		_, ok := found[id]
		return ok
	}); ok {
		return apperrors.NotFound("shift", id.String())
	}
	return nil
}

// referencedShifts 返回分配引用的班次ID，去重并保持出现顺序
func referencedShifts(assignments []*model.Assignment) []string {
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	var ids []string
	for _, a := range assignments {
		if _, ok := seen[a.ShiftID]; ok {
			continue
		}
		seen[a.ShiftID] = struct{}{}
		ids = append(ids, a.ShiftID.String())
	}
	return ids
}

// firstUnknownShift 返回第一个 known 不认识的班次ID
func firstUnknownShift(assignments []*model.Assignment, known func(uuid.UUID) bool) (uuid.UUID, bool) {
	for _, a := range assignments {
		if !known(a.ShiftID) {
			return a.ShiftID, true
		}
	}
	return uuid.Nil, false
}

// scanAssignment 扫描分配行
func scanAssignment(row Scanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	if err := row.Scan(
		&a.ID, &a.ScheduleID, &a.EmployeeID, &a.ShiftID, &a.Start, &a.End, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("扫描排班分配失败: %w", err)
	}
	return a, nil
}
