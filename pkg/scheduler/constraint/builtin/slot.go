package builtin

import (
	"fmt"

	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
	"github.com/paiban/shiftplan/pkg/validator"
)

// UniqueSlotConstraint 同一员工不得占用同一班次的两个槽位
// 每一对冲突槽位扣1硬分
type UniqueSlotConstraint struct {
	*BaseConstraint
}

// NewUniqueSlotConstraint 创建唯一槽位约束
func NewUniqueSlotConstraint() *UniqueSlotConstraint {
	return &UniqueSlotConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工班次唯一",
			constraint.TypeUniqueSlot,
			constraint.CategoryHard,
			1,
		),
	}
}

func sameShift(ctx *constraint.Context) func(a, b int) bool {
	slots := ctx.Snapshot.Slots
	return func(a, b int) bool {
		return slots[a].Shift == slots[b].Shift
	}
}

// Evaluate 评估整个方案
func (c *UniqueSlotConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	eachPair(ctx, sameShift(ctx), func(e, a, b int) {
		n++
		violations = append(violations, c.CreateViolation(ctx, e, []int{a, b},
			fmt.Sprintf("员工 %s 被重复分配到同一班次", ctx.Snapshot.Employees[e].Name), 1))
	})
	return c.points(n), violations
}

// Impact 返回涉及给定槽位的冲突对得分
func (c *UniqueSlotConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	return c.points(countPairs(ctx, slots, sameShift(ctx)))
}

// NoOverlapConstraint 同一员工在不同班次上的分配时间不得重叠（端点相接也算重叠）
// 每一对重叠槽位扣1硬分
type NoOverlapConstraint struct {
	*BaseConstraint
}

// NewNoOverlapConstraint 创建时间不重叠约束
func NewNoOverlapConstraint() *NoOverlapConstraint {
	return &NoOverlapConstraint{
		BaseConstraint: NewBaseConstraint(
			"员工时间不重叠",
			constraint.TypeNoOverlap,
			constraint.CategoryHard,
			1,
		),
	}
}

func overlapping(ctx *constraint.Context) func(a, b int) bool {
	slots := ctx.Snapshot.Slots
	return func(a, b int) bool {
		return slots[a].Shift != slots[b].Shift &&
			validator.IntervalsOverlap(slots[a].Range(), slots[b].Range())
	}
}

// Evaluate 评估整个方案
func (c *NoOverlapConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	slots := ctx.Snapshot.Slots
	eachPair(ctx, overlapping(ctx), func(e, a, b int) {
		n++
		violations = append(violations, c.CreateViolation(ctx, e, []int{a, b},
			fmt.Sprintf("员工 %s 的分配 %s 与 %s 时间重叠",
				ctx.Snapshot.Employees[e].Name, slots[a].Range(), slots[b].Range()), 1))
	})
	return c.points(n), violations
}

// Impact 返回涉及给定槽位的重叠对得分
func (c *NoOverlapConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	return c.points(countPairs(ctx, slots, overlapping(ctx)))
}

// ValidIntervalConstraint 分配区间必须有效（开始严格早于结束）
type ValidIntervalConstraint struct {
	*BaseConstraint
}

// NewValidIntervalConstraint 创建区间有效约束
func NewValidIntervalConstraint() *ValidIntervalConstraint {
	return &ValidIntervalConstraint{
		BaseConstraint: NewBaseConstraint(
			"分配区间有效",
			constraint.TypeValidInterval,
			constraint.CategoryHard,
			1,
		),
	}
}

// Evaluate 评估整个方案
func (c *ValidIntervalConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	for s, sl := range ctx.Snapshot.Slots {
		if err := validator.ValidRange(sl.Range()); err != nil {
			n++
			violations = append(violations, c.CreateViolation(ctx, ctx.Employee(s), []int{s}, err.Error(), 1))
		}
	}
	return c.points(n), violations
}

// Impact 返回给定槽位的得分
func (c *ValidIntervalConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	n := 0
	for _, s := range slots {
		if validator.ValidRange(ctx.Snapshot.Slots[s].Range()) != nil {
			n++
		}
	}
	return c.points(n)
}

// OneShiftPerDayConstraint 同一员工同一天尽量只上一个班次
// 按槽位开始时间所在时区的日历日分组，每一对同日槽位扣1软分
type OneShiftPerDayConstraint struct {
	*BaseConstraint
}

// NewOneShiftPerDayConstraint 创建每日一班约束
func NewOneShiftPerDayConstraint(weight int) *OneShiftPerDayConstraint {
	return &OneShiftPerDayConstraint{
		BaseConstraint: NewBaseConstraint(
			"每日一班",
			constraint.TypeOneShiftPerDay,
			constraint.CategorySoft,
			weight,
		),
	}
}

func sameDay(ctx *constraint.Context) func(a, b int) bool {
	slots := ctx.Snapshot.Slots
	return func(a, b int) bool {
		y1, m1, d1 := slots[a].Start.Date()
		y2, m2, d2 := slots[b].Start.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
}

// Evaluate 评估整个方案
func (c *OneShiftPerDayConstraint) Evaluate(ctx *constraint.Context) (score.Score, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	n := 0
	slots := ctx.Snapshot.Slots
	eachPair(ctx, sameDay(ctx), func(e, a, b int) {
		n++
		violations = append(violations, c.CreateViolation(ctx, e, []int{a, b},
			fmt.Sprintf("员工 %s 在 %s 被安排了多个班次",
				ctx.Snapshot.Employees[e].Name, slots[a].Start.Format("2006-01-02")), 1))
	})
	return c.points(n), violations
}

// Impact 返回涉及给定槽位的同日配对得分
func (c *OneShiftPerDayConstraint) Impact(ctx *constraint.Context, slots, _ []int) score.Score {
	return c.points(countPairs(ctx, slots, sameDay(ctx)))
}
