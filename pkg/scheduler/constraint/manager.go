// Package constraint 定义约束接口和管理器
package constraint

import (
	"sort"
	"sync"

	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// Manager 约束管理器
// 注册完成后只读，可被多个求解任务共享
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SchedulerLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSchedulerLogger(),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 检查是否已存在同类型约束
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c // 替换
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 按类别和权重排序：硬约束在前，权重高的在前
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Weight() > cj.Weight()
	})
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// Score 完整计算当前方案的得分
func (m *Manager) Score(ctx *Context) score.Score {
	return m.Impact(ctx, ctx.AllSlots(), ctx.AllEmployees())
}

// Impact 汇总所有约束在给定槽位和员工上的得分
func (m *Manager) Impact(ctx *Context, slots, employees []int) score.Score {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := score.Zero
	for _, c := range m.constraints {
		total = total.Add(c.Impact(ctx, slots, employees))
	}
	return total
}

// Evaluate 评估所有约束并收集违反详情
func (m *Manager) Evaluate(ctx *Context) *Result {
	constraints := m.GetAll()

	result := &Result{
		IsValid:        true,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range constraints {
		s, details := c.Evaluate(ctx)
		result.Score = result.Score.Add(s)

		for _, d := range details {
			switch {
			case d.Penalty <= 0:
				result.Rewards = append(result.Rewards, d)
			case c.Category() == CategoryHard:
				result.HardViolations = append(result.HardViolations, d)
			default:
				result.SoftViolations = append(result.SoftViolations, d)
			}
		}
	}

	result.IsValid = result.Score.IsFeasible()
	return result
}

// Explain 评估方案并记录硬约束违反日志
func (m *Manager) Explain(ctx *Context) *Result {
	result := m.Evaluate(ctx)
	for _, d := range result.HardViolations {
		m.logger.ConstraintViolation(d.ConstraintName, d.Message)
	}
	return result
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
