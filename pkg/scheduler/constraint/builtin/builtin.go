// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
)

// RegisterDefaultConstraints 注册默认约束到管理器
// 支持的配置项：available_weight、not_available_weight、one_shift_per_day、
// one_shift_per_day_weight、cap_rules、cap_weight
func RegisterDefaultConstraints(manager *constraint.Manager, config map[string]interface{}) {
	availableWeight := getConfigInt(config, "available_weight", 1)
	notAvailableWeight := getConfigInt(config, "not_available_weight", 1)

	// 注册硬约束
	manager.Register(NewUniqueSlotConstraint())
	manager.Register(NewValidIntervalConstraint())
	manager.Register(NewNoOverlapConstraint())

	// 注册软约束
	manager.Register(NewEmployeeAvailableConstraint(availableWeight))
	manager.Register(NewEmployeeNotAvailableConstraint(notAvailableWeight))
	if getConfigBool(config, "one_shift_per_day", true) {
		manager.Register(NewOneShiftPerDayConstraint(getConfigInt(config, "one_shift_per_day_weight", 1)))
	}

	if getConfigBool(config, "cap_rules", false) {
		RegisterCapConstraints(manager, config)
	}
}

// RegisterCapConstraints 注册工时与班次数上限约束（软约束，按超出量扣分）
func RegisterCapConstraints(manager *constraint.Manager, config map[string]interface{}) {
	weight := getConfigInt(config, "cap_weight", 1)

	manager.Register(NewMaxHoursPerEmployeeConstraint(weight))
	manager.Register(NewMaxShiftsPerEmployeeConstraint(weight))
	manager.Register(NewMaxHoursPerShiftConstraint(weight))
}

// NewDefaultManager 创建注册了默认约束的管理器
func NewDefaultManager(config map[string]interface{}) *constraint.Manager {
	manager := constraint.NewManager()
	RegisterDefaultConstraints(manager, config)
	return manager
}

// getConfigInt 获取整数配置
func getConfigInt(config map[string]interface{}, key string, defaultVal int) int {
	if config == nil {
		return defaultVal
	}
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case int64:
			return int(v)
		}
	}
	return defaultVal
}

// getConfigBool 获取布尔配置
func getConfigBool(config map[string]interface{}, key string, defaultVal bool) bool {
	if config == nil {
		return defaultVal
	}
	if val, ok := config[key].(bool); ok {
		return val
	}
	return defaultVal
}
