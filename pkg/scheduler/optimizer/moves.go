package optimizer

import (
	"math/rand"

	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveReassign MoveType = iota // 将一个槽位重新分配给候选员工（含未分配）
	MoveSwap                     // 交换两个槽位的员工
)

// String 返回移动类型名称
func (t MoveType) String() string {
	switch t {
	case MoveReassign:
		return "reassign"
	case MoveSwap:
		return "swap"
	default:
		return "unknown"
	}
}

// Move 可撤销的邻域移动
// Apply 记录槽位原值，Undo 据此恢复，不需要重建方案
type Move struct {
	Type     MoveType
	Slots    [2]int
	Employee int // Reassign 的目标员工

	prev    [2]int
	applied bool
}

// NewReassign 创建重新分配移动
func NewReassign(slot, employee int) Move {
	return Move{Type: MoveReassign, Slots: [2]int{slot, -1}, Employee: employee}
}

// NewSwap 创建交换移动
func NewSwap(a, b int) Move {
	return Move{Type: MoveSwap, Slots: [2]int{a, b}}
}

// AffectedSlots 返回移动涉及的槽位
func (m *Move) AffectedSlots() []int {
	if m.Type == MoveSwap {
		return []int{m.Slots[0], m.Slots[1]}
	}
	return []int{m.Slots[0]}
}

// AffectedEmployees 返回移动前后涉及的员工（去重，不含未分配）
// 必须在 Apply 之前调用
func (m *Move) AffectedEmployees(ctx *constraint.Context) []int {
	out := make([]int, 0, 4)
	add := func(e int) {
		if e == planning.Unassigned {
			return
		}
		for _, x := range out {
			if x == e {
				return
			}
		}
		out = append(out, e)
	}
	switch m.Type {
	case MoveSwap:
		add(ctx.Employee(m.Slots[0]))
		add(ctx.Employee(m.Slots[1]))
	default:
		add(ctx.Employee(m.Slots[0]))
		add(m.Employee)
	}
	return out
}

// IsNoop 移动是否不改变方案
func (m *Move) IsNoop(ctx *constraint.Context) bool {
	if m.Type == MoveSwap {
		return ctx.Employee(m.Slots[0]) == ctx.Employee(m.Slots[1])
	}
	return ctx.Employee(m.Slots[0]) == m.Employee
}

// Apply 执行移动
func (m *Move) Apply(ctx *constraint.Context) {
	a := m.Slots[0]
	m.prev[0] = ctx.Employee(a)
	switch m.Type {
	case MoveSwap:
		b := m.Slots[1]
		m.prev[1] = ctx.Employee(b)
		ctx.SetEmployee(a, m.prev[1])
		ctx.SetEmployee(b, m.prev[0])
	default:
		ctx.SetEmployee(a, m.Employee)
	}
	m.applied = true
}

// Undo 撤销移动
func (m *Move) Undo(ctx *constraint.Context) {
	if !m.applied {
		return
	}
	ctx.SetEmployee(m.Slots[0], m.prev[0])
	if m.Type == MoveSwap {
		ctx.SetEmployee(m.Slots[1], m.prev[1])
	}
	m.applied = false
}

// MoveGenerator 邻域移动生成器
type MoveGenerator struct {
	rng         *rand.Rand
	moveWeights []moveWeight
}

type moveWeight struct {
	typ    MoveType
	weight float64
}

// NewMoveGenerator 创建移动生成器，swapProbability 为选择交换移动的概率
func NewMoveGenerator(rng *rand.Rand, swapProbability float64) *MoveGenerator {
	if swapProbability < 0 {
		swapProbability = 0
	}
	if swapProbability > 1 {
		swapProbability = 1
	}
	return &MoveGenerator{
		rng: rng,
		moveWeights: []moveWeight{
			{MoveReassign, 1 - swapProbability},
			{MoveSwap, swapProbability},
		},
	}
}

// Generate 生成一个随机移动
// 槽位少于2个时只生成重新分配移动
func (g *MoveGenerator) Generate(ctx *constraint.Context) Move {
	n := ctx.NumSlots()
	if n >= 2 && g.selectMoveType() == MoveSwap {
		a := g.rng.Intn(n)
		b := g.rng.Intn(n - 1)
		if b >= a {
			b++
		}
		return NewSwap(a, b)
	}

	// 员工池包含“未分配”，对应下标 -1
	employee := g.rng.Intn(ctx.Snapshot.NumEmployees()+1) - 1
	return NewReassign(g.rng.Intn(n), employee)
}

// selectMoveType 按权重选择移动类型
func (g *MoveGenerator) selectMoveType() MoveType {
	r := g.rng.Float64()
	cumulative := 0.0

	for _, mw := range g.moveWeights {
		cumulative += mw.weight
		if r < cumulative {
			return mw.typ
		}
	}

	return MoveReassign
}
