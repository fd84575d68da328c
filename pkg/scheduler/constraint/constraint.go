// Package constraint 定义约束接口和管理器
package constraint

import (
	"github.com/google/uuid"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeUniqueSlot    Type = "unique_slot"    // 同一员工不得重复占用同一班次
	TypeValidInterval Type = "valid_interval" // 分配区间必须有效
	TypeNoOverlap     Type = "no_overlap"     // 同一员工不同班次不得重叠

	// 软约束类型
	TypeEmployeeAvailable    Type = "employee_is_available"
	TypeEmployeeNotAvailable Type = "employee_is_not_available"
	TypeMaxHoursPerEmployee  Type = "max_hours_per_employee"
	TypeMaxShiftsPerEmployee Type = "max_shifts_per_employee"
	TypeMaxHoursPerShift     Type = "max_hours_per_shift"
	TypeOneShiftPerDay       Type = "one_shift_per_day" // 同一员工同一天最多一个班次
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
// 实现必须无状态，可在多个求解任务间并发共享
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回每次违反（或奖励）的分值
	Weight() int

	// Evaluate 完整评估当前方案，返回得分和违反详情
	Evaluate(ctx *Context) (score.Score, []ViolationDetail)

	// Impact 返回与给定槽位或员工相关的那部分得分
	// 移动前后各调用一次，差值即为移动带来的得分变化
	// 成对规则只统计至少一端在 slots 中的配对，每对只计一次
	// 按员工汇总的规则只统计 employees 中的员工
	Impact(ctx *Context, slots []int, employees []int) score.Score
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type      `json:"constraint_type"`
	ConstraintName string    `json:"constraint_name"`
	EmployeeID     uuid.UUID `json:"employee_id,omitempty"`
	ShiftID        uuid.UUID `json:"shift_id,omitempty"`
	Slots          []int     `json:"slots,omitempty"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"` // error/warning/reward
	Penalty        int       `json:"penalty"`
}

// Context 求解任务的工作方案
// 每个任务独占一个 Context，不可并发修改
type Context struct {
	Snapshot *planning.Snapshot

	employees       []int   // 槽位 -> 员工下标
	slotsByEmployee [][]int // 员工 -> 槽位列表
	position        []int   // 槽位在其员工列表中的位置
}

// NewContext 以给定初始值创建工作方案，initial 为 nil 时使用快照的初始解
func NewContext(snap *planning.Snapshot, initial []int) *Context {
	if initial == nil {
		initial = snap.Initial
	}
	c := &Context{
		Snapshot:        snap,
		employees:       make([]int, len(initial)),
		slotsByEmployee: make([][]int, snap.NumEmployees()),
		position:        make([]int, len(initial)),
	}
	for slot := range c.employees {
		c.employees[slot] = planning.Unassigned
		c.SetEmployee(slot, initial[slot])
	}
	return c
}

// NumSlots 槽位数
func (c *Context) NumSlots() int { return len(c.employees) }

// Employee 返回槽位当前的员工下标
func (c *Context) Employee(slot int) int { return c.employees[slot] }

// SlotsOf 返回员工当前占用的槽位（只读，顺序不固定）
func (c *Context) SlotsOf(employee int) []int {
	if employee < 0 {
		return nil
	}
	return c.slotsByEmployee[employee]
}

// SetEmployee 设置槽位的员工并维护索引
func (c *Context) SetEmployee(slot, employee int) {
	old := c.employees[slot]
	if old == employee {
		return
	}
	if old != planning.Unassigned {
		list := c.slotsByEmployee[old]
		i := c.position[slot]
		last := list[len(list)-1]
		list[i] = last
		c.position[last] = i
		c.slotsByEmployee[old] = list[:len(list)-1]
	}
	c.employees[slot] = employee
	if employee != planning.Unassigned {
		c.position[slot] = len(c.slotsByEmployee[employee])
		c.slotsByEmployee[employee] = append(c.slotsByEmployee[employee], slot)
	}
}

// Employees 返回当前方案的拷贝
func (c *Context) Employees() []int {
	out := make([]int, len(c.employees))
	copy(out, c.employees)
	return out
}

// CopyInto 将当前方案拷贝到 dst，dst 长度必须等于槽位数
func (c *Context) CopyInto(dst []int) {
	copy(dst, c.employees)
}

// AllSlots 返回全部槽位下标
func (c *Context) AllSlots() []int {
	out := make([]int, len(c.employees))
	for i := range out {
		out[i] = i
	}
	return out
}

// AllEmployees 返回全部员工下标
func (c *Context) AllEmployees() []int {
	out := make([]int, len(c.slotsByEmployee))
	for i := range out {
		out[i] = i
	}
	return out
}

// Result 约束评估结果
type Result struct {
	Score          score.Score       `json:"score"`
	IsValid        bool              `json:"is_valid"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Rewards        []ViolationDetail `json:"rewards,omitempty"`
}
