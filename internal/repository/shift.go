package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/shiftplan/pkg/model"
)

// ListShifts 查询排班计划的班次
func (r *Store) ListShifts(ctx context.Context, scheduleID uuid.UUID) ([]*model.ShiftSlot, error) {
	query := `
		SELECT id, schedule_id, name, start_time, end_time, required_employees, created_at, updated_at
		FROM shifts
		WHERE schedule_id = $1 AND deleted_at IS NULL
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.ShiftSlot
	for rows.Next() {
		s := &model.ShiftSlot{}
		if err := rows.Scan(
			&s.ID, &s.ScheduleID, &s.Name, &s.Start, &s.End, &s.RequiredEmployees, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描班次失败: %w", err)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历班次失败: %w", err)
	}

	return shifts, nil
}

// ListAvailabilities 查询给定班次上的员工可用时间
func (r *Store) ListAvailabilities(ctx context.Context, shiftIDs []uuid.UUID) ([]*model.EmployeeAvailability, error) {
	if len(shiftIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(shiftIDs))
	for i, id := range shiftIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, employee_id, shift_id, start_time, end_time, max_hours_per_shift, created_at, updated_at
		FROM availabilities
		WHERE shift_id = ANY($1::uuid[]) AND deleted_at IS NULL
		ORDER BY shift_id, start_time
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("查询员工可用时间失败: %w", err)
	}
	defer rows.Close()

	var avails []*model.EmployeeAvailability
	for rows.Next() {
		a := &model.EmployeeAvailability{}
		if err := rows.Scan(
			&a.ID, &a.EmployeeID, &a.ShiftID, &a.Start, &a.End, &a.MaxHoursPerShift, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描员工可用时间失败: %w", err)
		}
		avails = append(avails, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历员工可用时间失败: %w", err)
	}

	return avails, nil
}
