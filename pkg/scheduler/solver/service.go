package solver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftplan/pkg/assignment"
	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
)

// ServiceConfig 求解服务配置
type ServiceConfig struct {
	AwaitTimeout time.Duration // Solve 等待结果的最长时间
	Seed         int64         // 快照打乱顺序的随机种子
	Resume       bool          // 以已有分配作为初始解
}

// Service 对外的同步求解入口：构建快照、提交任务、等待结果
type Service struct {
	builder  *planning.Builder
	jobs     *Manager
	replacer *assignment.Replacer
	config   ServiceConfig
}

// NewService 创建求解服务，replacer 为 nil 时 SolveAndApply 不可用
func NewService(builder *planning.Builder, jobs *Manager, replacer *assignment.Replacer, cfg ServiceConfig) *Service {
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = time.Minute
	}
	return &Service{
		builder:  builder,
		jobs:     jobs,
		replacer: replacer,
		config:   cfg,
	}
}

// Jobs 返回任务管理器
func (s *Service) Jobs() *Manager { return s.jobs }

// Submit 构建快照并提交异步任务
func (s *Service) Submit(ctx context.Context, scheduleID uuid.UUID, requester model.Requester) (uuid.UUID, error) {
	snap, err := s.builder.Build(ctx, scheduleID, requester, planning.BuildOptions{
		Seed:   s.config.Seed,
		Resume: s.config.Resume,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return s.jobs.Submit(scheduleID, snap)
}

// Solve 提交并等待求解结果
// 等待超时返回 SOLVER_TIMEOUT，任务继续运行，可通过 Jobs().Await 再次等待
func (s *Service) Solve(ctx context.Context, scheduleID uuid.UUID, requester model.Requester) (*SolveResult, error) {
	jobID, err := s.Submit(ctx, scheduleID, requester)
	if err != nil {
		return nil, err
	}
	return s.jobs.Await(ctx, jobID, s.config.AwaitTimeout)
}

// SolveAndApply 求解并把可行结果写回存储
func (s *Service) SolveAndApply(ctx context.Context, scheduleID uuid.UUID, requester model.Requester) (*SolveResult, error) {
	if s.replacer == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "未配置分配写入")
	}

	result, err := s.Solve(ctx, scheduleID, requester)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, requester, result)
}

// Apply 把已完成任务的结果写回存储，不可行的结果不写入
func (s *Service) Apply(ctx context.Context, requester model.Requester, result *SolveResult) (*SolveResult, error) {
	if s.replacer == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "未配置分配写入")
	}
	if !result.Feasible {
		return result, apperrors.ScheduleUnsolvable("未找到可行方案，结果未写入").
			WithField("score", result.Score.String())
	}

	// 未分配的槽位不写入
	saved, err := s.replacer.Replace(ctx, requester, assignment.FromAssignments(result.ScheduleID, result.Assignments))
	if err != nil {
		return result, err
	}
	result.Assignments = saved
	return result, nil
}
