// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleWindow 排班计划（求解期间不可变）
type ScheduleWindow struct {
	BaseModel
	OwnerID              uuid.UUID `json:"owner_id" db:"owner_id" yaml:"owner_id"`
	TeamID               uuid.UUID `json:"team_id" db:"team_id" yaml:"team_id"`
	Name                 string    `json:"name" db:"name" yaml:"name"`
	Start                time.Time `json:"start" db:"start_time" yaml:"start"`
	End                  time.Time `json:"end" db:"end_time" yaml:"end"`
	MaxHoursPerEmployee  int       `json:"max_hours_per_employee" db:"max_hours_per_employee" yaml:"max_hours_per_employee"`
	MaxShiftsPerEmployee int       `json:"max_shifts_per_employee" db:"max_shifts_per_employee" yaml:"max_shifts_per_employee"`
	MaxHoursPerShift     int       `json:"max_hours_per_shift" db:"max_hours_per_shift" yaml:"max_hours_per_shift"`
}

// Range 返回排班计划的时间范围
func (s *ScheduleWindow) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// ShiftSlot 班次（属于唯一的排班计划）
type ShiftSlot struct {
	BaseModel
	ScheduleID        uuid.UUID `json:"schedule_id" db:"schedule_id" yaml:"schedule_id"`
	Name              string    `json:"name,omitempty" db:"name" yaml:"name"`
	Start             time.Time `json:"start" db:"start_time" yaml:"start"`
	End               time.Time `json:"end" db:"end_time" yaml:"end"`
	RequiredEmployees int       `json:"required_employees" db:"required_employees" yaml:"required_employees"`
}

// Range 返回班次的时间范围
func (s *ShiftSlot) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// DurationHours 返回班次时长（小时）
func (s *ShiftSlot) DurationHours() float64 {
	return s.End.Sub(s.Start).Hours()
}

// Assignment 排班分配（已持久化的行）
type Assignment struct {
	BaseModel
	ScheduleID uuid.UUID `json:"schedule_id" db:"schedule_id" yaml:"schedule_id"`
	EmployeeID uuid.UUID `json:"employee_id" db:"employee_id" yaml:"employee_id"`
	ShiftID    uuid.UUID `json:"shift_id" db:"shift_id" yaml:"shift_id"`
	Start      time.Time `json:"start" db:"start_time" yaml:"start"`
	End        time.Time `json:"end" db:"end_time" yaml:"end"`
}

// Range 返回分配的时间范围
func (a *Assignment) Range() TimeRange {
	return TimeRange{Start: a.Start, End: a.End}
}

// WorkingHours 计算工作时长（小时）
func (a *Assignment) WorkingHours() float64 {
	return a.End.Sub(a.Start).Hours()
}
