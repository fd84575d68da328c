package builtin

import (
	"fmt"

	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// EmployeeAvailableConstraint 员工有覆盖槽位的可用时间时奖励软分
type EmployeeAvailableConstraint struct {
	*BaseConstraint
}

// NewEmployeeAvailableConstraint 创建员工可用奖励约束
func NewEmployeeAvailableConstraint(weight int) *EmployeeAvailableConstraint {
	return &EmployeeAvailableConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工可用",
			constraint.TypeEmployeeAvailable,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个方案
func (c *EmployeeAvailableConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var rewards []constraint.ViolationDetail
	n := 0
	for s := 0; s < ctx.NumSlots(); s++ {
		e := ctx.Employee(s)
		if e == planning.Unassigned || !ctx.Snapshot.IsAvailable(s, e) {
			continue
		}
		n++
		rewards = append(rewards, c.CreateViolation(ctx, e, []int{s},
			fmt.Sprintf("员工 %s 在班次时间内可用", ctx.Snapshot.Employees[e].Name), -1))
	}
	return c.points(-n), rewards
}

// Impact 返回给定槽位的奖励
func (c *EmployeeAvailableConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	n := 0
	for _, s := range slots {
		if e := ctx.Employee(s); e != planning.Unassigned && ctx.Snapshot.IsAvailable(s, e) {
			n++
		}
	}
	return c.points(-n)
}

// EmployeeNotAvailableConstraint 员工没有覆盖槽位的可用时间时扣软分
// 只扣分，不禁止分配
type EmployeeNotAvailableConstraint struct {
	*BaseConstraint
}

// NewEmployeeNotAvailableConstraint 创建员工不可用惩罚约束
func NewEmployeeNotAvailableConstraint(weight int) *EmployeeNotAvailableConstraint {
	return &EmployeeNotAvailableConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工不可用",
			constraint.TypeEmployeeNotAvailable,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个方案
func (c *EmployeeNotAvailableConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	for s := 0; s < ctx.NumSlots(); s++ {
		e := ctx.Employee(s)
		if e == planning.Unassigned || ctx.Snapshot.IsAvailable(s, e) {
			continue
		}
		n++
		violations = append(violations, c.CreateViolation(ctx, e, []int{s},
			fmt.Sprintf("员工 %s 在班次时间内不可用", ctx.Snapshot.Employees[e].Name), 1))
	}
	return c.points(n), violations
}

// Impact 返回给定槽位的惩罚
func (c *EmployeeNotAvailableConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	n := 0
	for _, s := range slots {
		if e := ctx.Employee(s); e != planning.Unassigned && !ctx.Snapshot.IsAvailable(s, e) {
			n++
		}
	}
	return c.points(n)
}
