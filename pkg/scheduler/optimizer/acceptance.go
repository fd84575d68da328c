package optimizer

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"

	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// 接受策略名称
const (
	AcceptorHillClimbing       = "hill_climbing"
	AcceptorSimulatedAnnealing = "simulated_annealing"
	AcceptorTabu               = "tabu"
)

// Step 一次候选移动的评估信息
type Step struct {
	Current   score.Score // 移动前得分
	Candidate score.Score // 移动后得分
	Progress  float64     // 搜索进度 [0,1]，按时间和迭代预算中较大者计
	Move      *Move
	Context   *constraint.Context // 已应用移动的工作方案
}

// Acceptor 接受策略
type Acceptor interface {
	Name() string
	// Accept 判断是否保留已应用的移动
	Accept(step Step) bool
	// Accepted 在移动被保留后调用
	Accepted(step Step)
}

// NewAcceptor 按名称创建接受策略
func NewAcceptor(name string, cfg *Config, rng *rand.Rand) (Acceptor, error) {
	switch name {
	case "", AcceptorHillClimbing:
		return HillClimbing{}, nil
	case AcceptorSimulatedAnnealing:
		return NewSimulatedAnnealing(cfg.InitialTemp, cfg.HardWeight, rng), nil
	case AcceptorTabu:
		return NewTabu(NewSimulatedAnnealing(cfg.InitialTemp, cfg.HardWeight, rng), cfg.TabuSize), nil
	default:
		return nil, fmt.Errorf("未知的接受策略: %s", name)
	}
}

// HillClimbing 爬山法：只接受不变差的移动
type HillClimbing struct{}

// Name 返回策略名称
func (HillClimbing) Name() string { return AcceptorHillClimbing }

// Accept 不变差即接受
func (HillClimbing) Accept(step Step) bool {
	return !step.Candidate.WorseThan(step.Current)
}

// Accepted 无状态
func (HillClimbing) Accepted(Step) {}

// SimulatedAnnealing 模拟退火：变差的移动按随进度下降的温度以一定概率接受
type SimulatedAnnealing struct {
	initialTemp float64
	hardWeight  float64
	rng         *rand.Rand
}

// NewSimulatedAnnealing 创建模拟退火策略
// hardWeight 为一个硬分折算的软分数，用于把两级得分差折算为单一能量差
func NewSimulatedAnnealing(initialTemp float64, hardWeight int, rng *rand.Rand) *SimulatedAnnealing {
	if hardWeight <= 0 {
		hardWeight = 1000
	}
	return &SimulatedAnnealing{
		initialTemp: initialTemp,
		hardWeight:  float64(hardWeight),
		rng:         rng,
	}
}

// Name 返回策略名称
func (s *SimulatedAnnealing) Name() string { return AcceptorSimulatedAnnealing }

// Temperature 返回给定进度下的温度，线性降到0
func (s *SimulatedAnnealing) Temperature(progress float64) float64 {
	if progress >= 1 {
		return 0
	}
	if progress < 0 {
		progress = 0
	}
	return s.initialTemp * (1 - progress)
}

// Accept 不变差总是接受，变差按 Boltzmann 概率接受
func (s *SimulatedAnnealing) Accept(step Step) bool {
	if !step.Candidate.WorseThan(step.Current) {
		return true
	}
	diff := step.Current.Sub(step.Candidate)
	delta := float64(diff.Hard)*s.hardWeight + float64(diff.Soft)
	return s.rng.Float64() < boltzmannProbability(delta, s.Temperature(step.Progress))
}

// Accepted 无状态
func (s *SimulatedAnnealing) Accepted(Step) {}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (old - new，越大越差)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0 // 更优解总是接受
	}
	if temperature <= 0 {
		return 0.0 // 温度为0时不接受更差的解
	}
	return math.Exp(-delta / temperature)
}

// Tabu 禁忌搜索：拒绝回到最近访问过的方案，除非得分严格改善
type Tabu struct {
	inner Acceptor
	list  *TabuList
}

// NewTabu 在给定策略外包装禁忌表
func NewTabu(inner Acceptor, size int) *Tabu {
	if size <= 0 {
		size = 50
	}
	return &Tabu{inner: inner, list: NewTabuList(size)}
}

// Name 返回策略名称
func (t *Tabu) Name() string { return AcceptorTabu }

// Accept 禁忌方案只有在严格改善时才接受（特赦准则）
func (t *Tabu) Accept(step Step) bool {
	if t.list.Contains(hashAssignments(step.Context)) && !step.Candidate.BetterThan(step.Current) {
		return false
	}
	return t.inner.Accept(step)
}

// Accepted 记录新方案
func (t *Tabu) Accepted(step Step) {
	t.list.Add(hashAssignments(step.Context))
	t.inner.Accepted(step)
}

// hashAssignments 计算方案的哈希 (使用FNV-1a算法)
func hashAssignments(ctx *constraint.Context) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for s := 0; s < ctx.NumSlots(); s++ {
		e := uint32(int32(ctx.Employee(s)))
		buf[0], buf[1], buf[2], buf[3] = byte(e), byte(e>>8), byte(e>>16), byte(e>>24)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// TabuList 禁忌表（使用uint64哈希作为键提高性能）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 返回禁忌表长度
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}
