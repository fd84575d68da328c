// Package planning 构建单次求解使用的不可变规划快照
package planning

import (
	"time"

	"github.com/google/uuid"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/validator"
)

// Unassigned 槽位未分配员工
const Unassigned = -1

// Slot 一个人数单位的班次槽位，员工是搜索唯一修改的字段，槽位本身不可变
type Slot struct {
	Shift int       // Snapshot.Shifts 下标
	Start time.Time // 槽位开始
	End   time.Time // 槽位结束
}

// Range 返回槽位时间范围
func (s Slot) Range() model.TimeRange {
	return model.TimeRange{Start: s.Start, End: s.End}
}

// Hours 返回槽位时长（小时）
func (s Slot) Hours() float64 {
	return s.End.Sub(s.Start).Hours()
}

// Snapshot 规划快照，构建后只读，可被并发读取
type Snapshot struct {
	Schedule       *model.ScheduleWindow
	Shifts         []*model.ShiftSlot
	Employees      []*model.EmployeeCandidate
	Availabilities []*model.EmployeeAvailability
	Slots          []Slot
	Initial        []int // 每个槽位的初始员工下标

	shiftIndex    map[uuid.UUID]int
	employeeIndex map[uuid.UUID]int
	availByKey    map[int][]int // shift*len(Employees)+employee -> Availabilities 下标
	available     []bool        // slot*len(Employees)+employee
}

// NumSlots 槽位数
func (s *Snapshot) NumSlots() int { return len(s.Slots) }

// NumEmployees 候选员工数
func (s *Snapshot) NumEmployees() int { return len(s.Employees) }

// ShiftIndex 根据班次ID查找下标
func (s *Snapshot) ShiftIndex(id uuid.UUID) (int, bool) {
	i, ok := s.shiftIndex[id]
	return i, ok
}

// EmployeeIndex 根据员工ID查找下标
func (s *Snapshot) EmployeeIndex(id uuid.UUID) (int, bool) {
	i, ok := s.employeeIndex[id]
	return i, ok
}

// AvailabilitiesFor 返回员工在某班次上的可用时间
func (s *Snapshot) AvailabilitiesFor(employee, shift int) []*model.EmployeeAvailability {
	idx := s.availByKey[shift*len(s.Employees)+employee]
	out := make([]*model.EmployeeAvailability, len(idx))
	for i, k := range idx {
		out[i] = s.Availabilities[k]
	}
	return out
}

// IsAvailable 员工是否有覆盖该槽位的可用时间（同一班次且槽位区间被可用区间包含）
func (s *Snapshot) IsAvailable(slot, employee int) bool {
	if employee < 0 || employee >= len(s.Employees) {
		return false
	}
	return s.available[slot*len(s.Employees)+employee]
}

// MaxHoursPerShift 返回员工在槽位上的单班工时上限，0 表示不限
// 优先取匹配可用时间上的设置，其次取排班计划的设置
func (s *Snapshot) MaxHoursPerShift(slot, employee int) int {
	limit := 0
	sl := s.Slots[slot]
	for _, k := range s.availByKey[sl.Shift*len(s.Employees)+employee] {
		a := s.Availabilities[k]
		if a.MaxHoursPerShift > limit && validator.IsSubsetOf(sl.Range(), a.Range()) {
			limit = a.MaxHoursPerShift
		}
	}
	if limit == 0 && s.Schedule != nil {
		limit = s.Schedule.MaxHoursPerShift
	}
	return limit
}

// ToAssignments 将员工下标数组转为待持久化的分配，跳过未分配槽位
func (s *Snapshot) ToAssignments(employees []int) []*model.Assignment {
	out := make([]*model.Assignment, 0, len(employees))
	for slot, e := range employees {
		if e == Unassigned {
			continue
		}
		sl := s.Slots[slot]
		out = append(out, &model.Assignment{
			BaseModel:  model.NewBaseModel(),
			ScheduleID: s.Schedule.ID,
			EmployeeID: s.Employees[e].ID,
			ShiftID:    s.Shifts[sl.Shift].ID,
			Start:      sl.Start,
			End:        sl.End,
		})
	}
	return out
}

// index 预计算下标与可用性矩阵
func (s *Snapshot) index() {
	s.shiftIndex = make(map[uuid.UUID]int, len(s.Shifts))
	for i, sh := range s.Shifts {
		s.shiftIndex[sh.ID] = i
	}
	s.employeeIndex = make(map[uuid.UUID]int, len(s.Employees))
	for i, e := range s.Employees {
		s.employeeIndex[e.ID] = i
	}

	n := len(s.Employees)
	s.availByKey = make(map[int][]int)
	for k, a := range s.Availabilities {
		si, ok := s.shiftIndex[a.ShiftID]
		if !ok {
			continue
		}
		ei, ok := s.employeeIndex[a.EmployeeID]
		if !ok {
			continue
		}
		key := si*n + ei
		s.availByKey[key] = append(s.availByKey[key], k)
	}

	s.available = make([]bool, len(s.Slots)*n)
	for slot, sl := range s.Slots {
		for e := 0; e < n; e++ {
			for _, k := range s.availByKey[sl.Shift*n+e] {
				if validator.IsSubsetOf(sl.Range(), s.Availabilities[k].Range()) {
					s.available[slot*n+e] = true
					break
				}
			}
		}
	}
}
