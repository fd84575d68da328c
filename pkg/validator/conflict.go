package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap       ConflictType = "overlap"        // 时间重叠
	ConflictInvalidRange  ConflictType = "invalid_range"  // 区间无效
	ConflictOutsideShift  ConflictType = "outside_shift"  // 超出班次范围
	ConflictDuplicateSlot ConflictType = "duplicate_slot" // 同一员工重复分配到同一班次
)

// Conflict 冲突信息
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    string       `json:"severity"` // error/warning
	EmployeeID  uuid.UUID    `json:"employee_id"`
	Message     string       `json:"message"`
	Assignments []int        `json:"assignments,omitempty"` // 输入中的下标
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckShiftBounds bool // 是否检查分配位于班次范围内
	StopOnFirst      bool // 发现首个冲突即停止
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckShiftBounds: true,
		StopOnFirst:      false,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测所有冲突
// shifts 可为 nil，此时跳过班次范围检查
func (d *ConflictDetector) DetectAll(assignments []*model.Assignment, shifts map[uuid.UUID]*model.ShiftSlot) []Conflict {
	var conflicts []Conflict

	for i, a := range assignments {
		if err := ValidateInterval(a.Start, a.End); err != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictInvalidRange,
				Severity:    "error",
				EmployeeID:  a.EmployeeID,
				Message:     err.Error(),
				Assignments: []int{i},
			})
			if d.config.StopOnFirst {
				return conflicts
			}
			continue
		}
		if d.config.CheckShiftBounds && shifts != nil {
			if shift := shifts[a.ShiftID]; shift != nil && !IsSubsetOf(a.Range(), shift.Range()) {
				conflicts = append(conflicts, Conflict{
					Type:        ConflictOutsideShift,
					Severity:    "error",
					EmployeeID:  a.EmployeeID,
					Message:     fmt.Sprintf("分配 %s 超出班次范围 %s", a.Range(), shift.Range()),
					Assignments: []int{i},
				})
				if d.config.StopOnFirst {
					return conflicts
				}
			}
		}
	}

	groups := groupByEmployee(assignments)
	for _, empID := range sortedEmployees(assignments) {
		conflicts = append(conflicts, d.detectOverlaps(empID, groups[empID], assignments)...)
		if d.config.StopOnFirst && len(conflicts) > 0 {
			return conflicts[:1]
		}
	}

	return conflicts
}

// FirstOverlap 按员工检测重叠，返回第一对冲突的 OverlappingAssignment 错误
func (d *ConflictDetector) FirstOverlap(assignments []*model.Assignment) error {
	groups := groupByEmployee(assignments)
	for _, empID := range sortedEmployees(assignments) {
		found := d.detectOverlaps(empID, groups[empID], assignments)
		if len(found) == 0 {
			continue
		}
		a, b := assignments[found[0].Assignments[0]], assignments[found[0].Assignments[1]]
		return apperrors.OverlappingAssignment(empID.String(), describe(a), describe(b))
	}
	return nil
}

// detectOverlaps 检测单个员工的时间重叠
// 闭区间语义，端点相接也算重叠
func (d *ConflictDetector) detectOverlaps(empID uuid.UUID, idx []int, assignments []*model.Assignment) []Conflict {
	var conflicts []Conflict

	sort.SliceStable(idx, func(i, j int) bool {
		return assignments[idx[i]].Start.Before(assignments[idx[j]].Start)
	})

	for x := 0; x < len(idx); x++ {
		for y := x + 1; y < len(idx); y++ {
			a, b := assignments[idx[x]], assignments[idx[y]]
			if b.Start.After(a.End) {
				// 已按开始时间排序，后续不可能再与 a 重叠
				break
			}
			if !IntervalsOverlap(a.Range(), b.Range()) {
				continue
			}
			ct := ConflictOverlap
			msg := fmt.Sprintf("员工 %s 的分配 %s 与 %s 时间重叠", empID, a.Range(), b.Range())
			if a.ShiftID == b.ShiftID {
				ct = ConflictDuplicateSlot
				msg = fmt.Sprintf("员工 %s 在班次 %s 被重复分配", empID, a.ShiftID)
			}
			conflicts = append(conflicts, Conflict{
				Type:        ct,
				Severity:    "error",
				EmployeeID:  empID,
				Message:     msg,
				Assignments: []int{idx[x], idx[y]},
			})
		}
	}

	return conflicts
}

// groupByEmployee 按员工分组（值为输入下标）
func groupByEmployee(assignments []*model.Assignment) map[uuid.UUID][]int {
	result := make(map[uuid.UUID][]int)
	for i, a := range assignments {
		result[a.EmployeeID] = append(result[a.EmployeeID], i)
	}
	return result
}

// sortedEmployees 返回按首次出现顺序排列的员工ID，保证结果稳定
func sortedEmployees(assignments []*model.Assignment) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range assignments {
		if !seen[a.EmployeeID] {
			seen[a.EmployeeID] = true
			ids = append(ids, a.EmployeeID)
		}
	}
	return ids
}

func describe(a *model.Assignment) string {
	return fmt.Sprintf("shift=%s [%s]", a.ShiftID, a.Range())
}
