// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseConstraint {
	if weight <= 0 {
		weight = 1
	}
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Weight 返回约束权重
func (c *BaseConstraint) Weight() int { return c.weight }

// points 将违反次数折算为得分，n 为正表示惩罚，为负表示奖励
func (c *BaseConstraint) points(n int) score.Score {
	if c.category == constraint.CategoryHard {
		return score.Of(-n*c.weight, 0)
	}
	return score.Of(0, -n*c.weight)
}

// CreateViolation 创建违反详情，n 为正表示惩罚次数，为负表示奖励次数
func (c *BaseConstraint) CreateViolation(ctx *constraint.Context, employee int, slots []int, message string, n int) constraint.ViolationDetail {
	severity := "warning"
	switch {
	case n < 0:
		severity = "reward"
	case c.category == constraint.CategoryHard:
		severity = "error"
	}

	d := constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		Slots:          slots,
		Message:        message,
		Severity:       severity,
		Penalty:        n * c.weight,
	}
	snap := ctx.Snapshot
	if employee >= 0 && employee < snap.NumEmployees() {
		d.EmployeeID = snap.Employees[employee].ID
	}
	if len(slots) > 0 {
		d.ShiftID = snap.Shifts[snap.Slots[slots[0]].Shift].ID
	}
	return d
}

// slotSet 判断槽位是否属于本次统计范围
type slotSet struct {
	list []int
	set  map[int]struct{}
}

func newSlotSet(slots []int) slotSet {
	s := slotSet{list: slots}
	if len(slots) > 8 {
		s.set = make(map[int]struct{}, len(slots))
		for _, x := range slots {
			s.set[x] = struct{}{}
		}
	}
	return s
}

func (s slotSet) has(x int) bool {
	if s.set != nil {
		_, ok := s.set[x]
		return ok
	}
	for _, y := range s.list {
		if y == x {
			return true
		}
	}
	return false
}

// countPairs 统计至少一端在 slots 中、同一员工且满足 match 的槽位对，每对只计一次
func countPairs(ctx *constraint.Context, slots []int, match func(a, b int) bool) int {
	set := newSlotSet(slots)
	count := 0
	for _, s := range slots {
		e := ctx.Employee(s)
		if e == planning.Unassigned {
			continue
		}
		for _, j := range ctx.SlotsOf(e) {
			if j == s || (j < s && set.has(j)) {
				continue
			}
			if match(s, j) {
				count++
			}
		}
	}
	return count
}

// eachPair 遍历全部同一员工且满足 match 的槽位对（a < b）
func eachPair(ctx *constraint.Context, match func(a, b int) bool, fn func(employee, a, b int)) {
	for s := 0; s < ctx.NumSlots(); s++ {
		e := ctx.Employee(s)
		if e == planning.Unassigned {
			continue
		}
		for _, j := range ctx.SlotsOf(e) {
			if j > s && match(s, j) {
				fn(e, s, j)
			}
		}
	}
}
