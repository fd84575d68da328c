package builtin

import (
	"fmt"
	"math"

	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// excess 超出上限的整数单位，不足一个单位按一个计
func excess(value float64, limit int) int {
	if limit <= 0 || value <= float64(limit) {
		return 0
	}
	return int(math.Ceil(value - float64(limit)))
}

// MaxHoursPerEmployeeConstraint 员工在整个排班计划内的总工时上限
// 每超出1小时扣1软分
type MaxHoursPerEmployeeConstraint struct {
	*BaseConstraint
}

// NewMaxHoursPerEmployeeConstraint 创建员工总工时上限约束
func NewMaxHoursPerEmployeeConstraint(weight int) *MaxHoursPerEmployeeConstraint {
	return &MaxHoursPerEmployeeConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工总工时上限",
			constraint.TypeMaxHoursPerEmployee,
			constraint.CategorySoft,
			weight,
		),
	}
}

func (c *MaxHoursPerEmployeeConstraint) over(ctx *constraint.Context, e int) (float64, int) {
	hours := 0.0
	for _, s := range ctx.SlotsOf(e) {
		hours += ctx.Snapshot.Slots[s].Hours()
	}
	return hours, excess(hours, ctx.Snapshot.Schedule.MaxHoursPerEmployee)
}

// Evaluate 评估整个方案
func (c *MaxHoursPerEmployeeConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	for e := 0; e < ctx.Snapshot.NumEmployees(); e++ {
		hours, over := c.over(ctx, e)
		if over == 0 {
			continue
		}
		n += over
		violations = append(violations, c.CreateViolation(ctx, e, nil,
			fmt.Sprintf("员工 %s 总工时 %.1f 小时，超过限制 %d 小时",
				ctx.Snapshot.Employees[e].Name, hours, ctx.Snapshot.Schedule.MaxHoursPerEmployee), over))
	}
	return c.points(n), violations
}

// Impact 返回给定员工的得分
func (c *MaxHoursPerEmployeeConstraint) Impact(ctx *constraint.Context, _, employees []int) score.Score {
	n := 0
	for _, e := range employees {
		if e == planning.Unassigned {
			continue
		}
		_, over := c.over(ctx, e)
		n += over
	}
	return c.points(n)
}

// MaxShiftsPerEmployeeConstraint 员工在整个排班计划内的班次数上限
// 每多一个班次扣1软分
type MaxShiftsPerEmployeeConstraint struct {
	*BaseConstraint
}

// NewMaxShiftsPerEmployeeConstraint 创建员工班次数上限约束
func NewMaxShiftsPerEmployeeConstraint(weight int) *MaxShiftsPerEmployeeConstraint {
	return &MaxShiftsPerEmployeeConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工班次数上限",
			constraint.TypeMaxShiftsPerEmployee,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个方案
func (c *MaxShiftsPerEmployeeConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	limit := ctx.Snapshot.Schedule.MaxShiftsPerEmployee
	n := 0
	for e := 0; e < ctx.Snapshot.NumEmployees(); e++ {
		count := len(ctx.SlotsOf(e))
		over := excess(float64(count), limit)
		if over == 0 {
			continue
		}
		n += over
		violations = append(violations, c.CreateViolation(ctx, e, nil,
			fmt.Sprintf("员工 %s 分配 %d 个班次，超过限制 %d 个",
				ctx.Snapshot.Employees[e].Name, count, limit), over))
	}
	return c.points(n), violations
}

// Impact 返回给定员工的得分
func (c *MaxShiftsPerEmployeeConstraint) Impact(ctx *constraint.Context, _, employees []int) score.Score {
	limit := ctx.Snapshot.Schedule.MaxShiftsPerEmployee
	n := 0
	for _, e := range employees {
		if e == planning.Unassigned {
			continue
		}
		n += excess(float64(len(ctx.SlotsOf(e))), limit)
	}
	return c.points(n)
}

// MaxHoursPerShiftConstraint 单个班次的工时上限
// 上限取员工匹配可用时间上的设置，缺省时取排班计划的设置
type MaxHoursPerShiftConstraint struct {
	*BaseConstraint
}

// NewMaxHoursPerShiftConstraint 创建单班工时上限约束
func NewMaxHoursPerShiftConstraint(weight int) *MaxHoursPerShiftConstraint {
	return &MaxHoursPerShiftConstraint{
		BaseConstraint: NewBaseConstraint(
			"单班工时上限",
			constraint.TypeMaxHoursPerShift,
			constraint.CategorySoft,
			weight,
		),
	}
}

func (c *MaxHoursPerShiftConstraint) over(ctx *constraint.Context, s int) (int, int) {
	e := ctx.Employee(s)
	if e == planning.Unassigned {
		return 0, 0
	}
	limit := ctx.Snapshot.MaxHoursPerShift(s, e)
	return limit, excess(ctx.Snapshot.Slots[s].Hours(), limit)
}

// Evaluate 评估整个方案
func (c *MaxHoursPerShiftConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	for s := 0; s < ctx.NumSlots(); s++ {
		limit, over := c.over(ctx, s)
		if over == 0 {
			continue
		}
		n += over
		violations = append(violations, c.CreateViolation(ctx, ctx.Employee(s), []int{s},
			fmt.Sprintf("班次时长 %.1f 小时，超过员工单班上限 %d 小时", ctx.Snapshot.Slots[s].Hours(), limit), over))
	}
	return c.points(n), violations
}

// Impact 返回给定槽位的得分
func (c *MaxHoursPerShiftConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	n := 0
	for _, s := range slots {
		_, over := c.over(ctx, s)
		n += over
	}
	return c.points(n)
}
