// Package optimizer 提供排班优化算法
package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

// Config 优化配置
type Config struct {
	MaxIterations    int           `json:"max_iterations"`    // 最大迭代次数，0 表示不限
	MaxTime          time.Duration `json:"max_time"`          // 最大运行时间，0 表示不限
	PlateauThreshold int           `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数），0 表示不启用
	Acceptor         string        `json:"acceptor"`          // hill_climbing/simulated_annealing/tabu
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	HardWeight       int           `json:"hard_weight"`       // 模拟退火中一个硬分折算的软分
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	SwapProbability  float64       `json:"swap_probability"`  // 选择交换移动的概率
	Seed             int64         `json:"seed"`              // 随机种子，0 表示使用当前时间
}

// DefaultConfig 默认优化配置
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:    200000,
		MaxTime:          30 * time.Second,
		PlateauThreshold: 20000,
		Acceptor:         AcceptorSimulatedAnnealing,
		InitialTemp:      2.0,
		HardWeight:       100,
		TabuSize:         50,
		SwapProbability:  0.5,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 && c.MaxTime <= 0 {
		return fmt.Errorf("必须设置最大迭代次数或最大运行时间")
	}
	if c.SwapProbability < 0 || c.SwapProbability > 1 {
		return fmt.Errorf("交换概率必须在 [0,1] 范围内: %v", c.SwapProbability)
	}
	switch c.Acceptor {
	case "", AcceptorHillClimbing, AcceptorSimulatedAnnealing, AcceptorTabu:
	default:
		return fmt.Errorf("未知的接受策略: %s", c.Acceptor)
	}
	return nil
}

// State 搜索状态
type State int32

const (
	StateInitializing State = iota
	StateSearching
	StateTerminated
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSearching:
		return "searching"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TerminationReason 终止原因
type TerminationReason string

const (
	ReasonTimeBudget    TerminationReason = "time_budget"
	ReasonMaxIterations TerminationReason = "max_iterations"
	ReasonPlateau       TerminationReason = "plateau"
	ReasonCancelled     TerminationReason = "cancelled"
)

// Solution 表示一个排班方案（每个槽位的员工下标）
type Solution struct {
	Employees []int
	Score     score.Score
	Feasible  bool
}

// Clone 深拷贝解决方案
func (s *Solution) Clone() *Solution {
	clone := &Solution{
		Employees: make([]int, len(s.Employees)),
		Score:     s.Score,
		Feasible:  s.Feasible,
	}
	copy(clone.Employees, s.Employees)
	return clone
}

// Result 搜索结果
type Result struct {
	Best          *Solution         `json:"best"`
	Initial       score.Score       `json:"initial_score"`
	Iterations    int               `json:"iterations"`
	AcceptedMoves int               `json:"accepted_moves"`
	Improvements  int               `json:"improvements"`
	Elapsed       time.Duration     `json:"elapsed"`
	Reason        TerminationReason `json:"reason"`
	Cancelled     bool              `json:"cancelled"`
	BestHistory   []score.Score     `json:"-"` // 每次改进后的最优得分
}

// Engine 局部搜索引擎
// Engine 本身无状态，可被多个任务共享；每次 Run 使用独立的 Search
type Engine struct {
	config      *Config
	constraints *constraint.Manager
	logger      *logger.SchedulerLogger
}

// NewEngine 创建局部搜索引擎
func NewEngine(config *Config, constraints *constraint.Manager) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{
		config:      config,
		constraints: constraints,
		logger:      logger.NewSchedulerLogger(),
	}
}

// WithLogger 替换日志器
func (e *Engine) WithLogger(l *logger.SchedulerLogger) *Engine {
	e.logger = l
	return e
}

// Config 返回引擎配置
func (e *Engine) Config() *Config { return e.config }

// Constraints 返回约束管理器
func (e *Engine) Constraints() *constraint.Manager { return e.constraints }

// Run 对快照执行一次完整搜索
func (e *Engine) Run(ctx context.Context, snap *planning.Snapshot) (*Result, error) {
	search, err := e.NewSearch(snap)
	if err != nil {
		return nil, err
	}
	return search.Run(ctx)
}

// NewSearch 创建一次搜索
func (e *Engine) NewSearch(snap *planning.Snapshot) (*Search, error) {
	if err := e.config.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "优化配置无效")
	}
	if snap == nil || snap.NumSlots() == 0 || snap.NumEmployees() == 0 {
		return nil, apperrors.ScheduleUnsolvable("规划快照没有槽位或候选员工")
	}

	seed := e.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	acceptor, err := NewAcceptor(e.config.Acceptor, e.config, rng)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "优化配置无效")
	}

	return &Search{
		engine:    e,
		snap:      snap,
		acceptor:  acceptor,
		generator: NewMoveGenerator(rng, e.config.SwapProbability),
	}, nil
}

// Search 一次搜索的运行状态，只能由一个协程执行
type Search struct {
	engine    *Engine
	snap      *planning.Snapshot
	acceptor  Acceptor
	generator *MoveGenerator
	state     atomic.Int32
}

// State 返回当前状态，可并发读取
func (s *Search) State() State {
	return State(s.state.Load())
}

// Run 执行搜索：Initializing → Searching → Terminated
// 取消时返回已找到的最优解，Cancelled 为 true
func (s *Search) Run(ctx context.Context) (*Result, error) {
	cfg := s.engine.config
	manager := s.engine.constraints
	log := s.engine.logger

	s.state.Store(int32(StateInitializing))
	work := constraint.NewContext(s.snap, nil)
	current := manager.Score(work)
	best := &Solution{Employees: work.Employees(), Score: current, Feasible: current.IsFeasible()}
	result := &Result{Initial: current, BestHistory: []score.Score{current}}

	s.state.Store(int32(StateSearching))
	log.SearchStarted(s.acceptor.Name(), s.snap.NumSlots(), current.String(), cfg.MaxTime)

	start := time.Now()
	noImprovementCount := 0

	for {
		// 检查取消
		select {
		case <-ctx.Done():
			result.Reason = ReasonCancelled
			result.Cancelled = true
		default:
		}
		if result.Reason != "" {
			break
		}

		elapsed := time.Since(start)
		if cfg.MaxTime > 0 && elapsed >= cfg.MaxTime {
			result.Reason = ReasonTimeBudget
			break
		}
		if cfg.MaxIterations > 0 && result.Iterations >= cfg.MaxIterations {
			result.Reason = ReasonMaxIterations
			break
		}
		if cfg.PlateauThreshold > 0 && noImprovementCount >= cfg.PlateauThreshold {
			result.Reason = ReasonPlateau
			break
		}

		result.Iterations++
		move := s.generator.Generate(work)
		if move.IsNoop(work) {
			noImprovementCount++
			continue
		}

		slots := move.AffectedSlots()
		employees := move.AffectedEmployees(work)
		before := manager.Impact(work, slots, employees)
		move.Apply(work)
		after := manager.Impact(work, slots, employees)

		step := Step{
			Current:   current,
			Candidate: current.Add(after.Sub(before)),
			Progress:  progress(cfg, elapsed, result.Iterations),
			Move:      &move,
			Context:   work,
		}
		if s.acceptor.Accept(step) {
			current = step.Candidate
			result.AcceptedMoves++
			s.acceptor.Accepted(step)
		} else {
			move.Undo(work)
		}

		// 更新最优解
		if current.BetterThan(best.Score) {
			work.CopyInto(best.Employees)
			best.Score = current
			best.Feasible = current.IsFeasible()
			result.Improvements++
			result.BestHistory = append(result.BestHistory, current)
			noImprovementCount = 0
			log.NewBestScore(result.Iterations, current.String())
		} else {
			noImprovementCount++
		}
	}

	result.Best = best
	result.Elapsed = time.Since(start)
	s.state.Store(int32(StateTerminated))
	log.SearchTerminated(string(result.Reason), result.Iterations, best.Score.String(), result.Elapsed)

	return result, nil
}

// progress 搜索进度，取时间与迭代预算中消耗较多的一方
func progress(cfg *Config, elapsed time.Duration, iterations int) float64 {
	p := 0.0
	if cfg.MaxTime > 0 {
		p = float64(elapsed) / float64(cfg.MaxTime)
	}
	if cfg.MaxIterations > 0 {
		if q := float64(iterations) / float64(cfg.MaxIterations); q > p {
			p = q
		}
	}
	if p > 1 {
		p = 1
	}
	return p
}
