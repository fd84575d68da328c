// Package constraints 约束库说明，供命令行展示
package constraints

import (
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"` // 对应 builtin 注册配置的键
	Type        string `json:"type"` // int, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Env         string `json:"env,omitempty"` // 对应的环境变量
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Type        constraint.Type     `json:"type"`
	DisplayName string              `json:"display_name"`
	Category    constraint.Category `json:"category"`
	Description string              `json:"description"`
	Penalty     string              `json:"penalty"` // 计分方式
	Params      []ConstraintParam   `json:"params,omitempty"`
	Enabled     bool                `json:"enabled"`
}

var capParams = []ConstraintParam{
	{Name: "cap_rules", Type: "bool", Description: "启用上限类约束", Default: "false", Env: "SOLVER_CAP_RULES"},
	{Name: "cap_weight", Type: "int", Description: "每单位超出量的扣分", Default: "1"},
}

// GetLibrary 获取完整的约束库
func GetLibrary() []ConstraintDefinition {
	return []ConstraintDefinition{
		// 硬约束
		{
			Type:        constraint.TypeUniqueSlot,
			DisplayName: "员工班次唯一",
			Category:    constraint.CategoryHard,
			Description: "同一员工不得占用同一班次的两个槽位。",
			Penalty:     "每对重复槽位扣1硬分",
		},
		{
			Type:        constraint.TypeValidInterval,
			DisplayName: "分配区间有效",
			Category:    constraint.CategoryHard,
			Description: "已分配槽位的开始时间必须早于结束时间。",
			Penalty:     "每个无效槽位扣1硬分",
		},
		{
			Type:        constraint.TypeNoOverlap,
			DisplayName: "员工时间不重叠",
			Category:    constraint.CategoryHard,
			Description: "同一员工在不同班次上的分配时间不得重叠，端点相接也算重叠。",
			Penalty:     "每对重叠分配扣1硬分",
		},

		// 软约束
		{
			Type:        constraint.TypeEmployeeAvailable,
			DisplayName: "员工可用",
			Category:    constraint.CategorySoft,
			Description: "槽位分配给在该班次上有覆盖其时间的可用时间的员工。",
			Penalty:     "每个满足的槽位奖励1软分",
			Params: []ConstraintParam{
				{Name: "available_weight", Type: "int", Description: "每个槽位的奖励分", Default: "1"},
			},
		},
		{
			Type:        constraint.TypeEmployeeNotAvailable,
			DisplayName: "员工不可用",
			Category:    constraint.CategorySoft,
			Description: "槽位分配给没有可用时间覆盖的员工。",
			Penalty:     "每个槽位扣1软分",
			Params: []ConstraintParam{
				{Name: "not_available_weight", Type: "int", Description: "每个槽位的扣分", Default: "1"},
			},
		},
		{
			Type:        constraint.TypeOneShiftPerDay,
			DisplayName: "每日一班",
			Category:    constraint.CategorySoft,
			Description: "同一员工在同一个日历日内最多安排一个班次，按槽位开始时间计日。",
			Penalty:     "每对同日分配扣1软分",
			Params: []ConstraintParam{
				{Name: "one_shift_per_day", Type: "bool", Description: "启用每日一班约束", Default: "true", Env: "SOLVER_ONE_SHIFT_PER_DAY"},
				{Name: "one_shift_per_day_weight", Type: "int", Description: "每对同日分配的扣分", Default: "1"},
			},
		},
		{
			Type:        constraint.TypeMaxHoursPerEmployee,
			DisplayName: "员工总工时上限",
			Category:    constraint.CategorySoft,
			Description: "员工在排班计划内的总工时不超过计划设置的上限。",
			Penalty:     "每超出1小时扣1软分",
			Params:      capParams,
		},
		{
			Type:        constraint.TypeMaxShiftsPerEmployee,
			DisplayName: "员工班次数上限",
			Category:    constraint.CategorySoft,
			Description: "员工在排班计划内的班次数不超过计划设置的上限。",
			Penalty:     "每超出1个班次扣1软分",
			Params:      capParams,
		},
		{
			Type:        constraint.TypeMaxHoursPerShift,
			DisplayName: "单班工时上限",
			Category:    constraint.CategorySoft,
			Description: "单个槽位的时长不超过可用时间或排班计划设置的单班上限。",
			Penalty:     "每超出1小时扣1软分",
			Params:      capParams,
		},
	}
}

// Describe 返回约束库，并标记管理器中已注册的约束
func Describe(m *constraint.Manager) []ConstraintDefinition {
	library := GetLibrary()
	for i := range library {
		library[i].Enabled = m != nil && m.GetConstraint(library[i].Type) != nil
	}
	return library
}
