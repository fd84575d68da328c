package model

import (
	"time"

	"github.com/google/uuid"
)

// EmployeeCandidate 候选员工
type EmployeeCandidate struct {
	ID   uuid.UUID `json:"id" db:"id" yaml:"id"`
	Name string    `json:"name" db:"name" yaml:"name"`
}

// EmployeeAvailability 员工可用时间（必须位于班次范围内）
type EmployeeAvailability struct {
	BaseModel
	EmployeeID       uuid.UUID `json:"employee_id" db:"employee_id" yaml:"employee_id"`
	ShiftID          uuid.UUID `json:"shift_id" db:"shift_id" yaml:"shift_id"`
	Start            time.Time `json:"start" db:"start_time" yaml:"start"`
	End              time.Time `json:"end" db:"end_time" yaml:"end"`
	MaxHoursPerShift int       `json:"max_hours_per_shift" db:"max_hours_per_shift" yaml:"max_hours_per_shift"`
}

// Range 返回可用时间范围
func (a *EmployeeAvailability) Range() TimeRange {
	return TimeRange{Start: a.Start, End: a.End}
}
