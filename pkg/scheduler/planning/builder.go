package planning

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/model"
)

// Source 规划数据来源，查询按所有者限定范围
type Source interface {
	// GetSchedule 不存在或不属于 owner 时返回 nil, nil
	GetSchedule(ctx context.Context, scheduleID, ownerID uuid.UUID) (*model.ScheduleWindow, error)
	ListShifts(ctx context.Context, scheduleID uuid.UUID) ([]*model.ShiftSlot, error)
	ListAvailabilities(ctx context.Context, shiftIDs []uuid.UUID) ([]*model.EmployeeAvailability, error)
	ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]*model.EmployeeCandidate, error)
	ListAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*model.Assignment, error)
}

// BuildOptions 快照构建选项
type BuildOptions struct {
	Seed   int64 // 打乱顺序使用的随机种子，0 表示使用当前时间
	Resume bool  // 以已持久化的分配作为初始解
}

// Builder 快照构建器
type Builder struct {
	source Source
	log    zerolog.Logger
}

// NewBuilder 创建快照构建器
func NewBuilder(source Source) *Builder {
	return &Builder{
		source: source,
		log:    logger.Get().With().Str("component", "planning").Logger(),
	}
}

// Build 为一个排班计划构建规划快照
func (b *Builder) Build(ctx context.Context, scheduleID uuid.UUID, requester model.Requester, opts BuildOptions) (*Snapshot, error) {
	schedule, err := b.source.GetSchedule(ctx, scheduleID, requester.Owner())
	if err != nil {
		return nil, fmt.Errorf("查询排班计划失败: %w", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("schedule", scheduleID.String())
	}

	shifts, err := b.source.ListShifts(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	if len(shifts) == 0 {
		return nil, apperrors.ScheduleUnsolvable(fmt.Sprintf("排班计划 %s 没有班次", scheduleID))
	}

	shiftIDs := make([]uuid.UUID, len(shifts))
	for i, s := range shifts {
		shiftIDs[i] = s.ID
	}
	avails, err := b.source.ListAvailabilities(ctx, shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("查询员工可用时间失败: %w", err)
	}

	members, err := b.source.ListTeamMembers(ctx, schedule.TeamID)
	if err != nil {
		return nil, fmt.Errorf("查询团队成员失败: %w", err)
	}

	// 候选员工：团队成员中至少在一个班次上有可用时间的人
	hasAvailability := make(map[uuid.UUID]bool, len(avails))
	for _, a := range avails {
		hasAvailability[a.EmployeeID] = true
	}
	candidates := make([]*model.EmployeeCandidate, 0, len(members))
	for _, m := range members {
		if hasAvailability[m.ID] {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, apperrors.ScheduleUnsolvable(fmt.Sprintf("排班计划 %s 没有可用员工", scheduleID))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	shifts = append([]*model.ShiftSlot(nil), shifts...)
	rng.Shuffle(len(shifts), func(i, j int) { shifts[i], shifts[j] = shifts[j], shifts[i] })
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	snap := NewSnapshot(schedule, shifts, candidates, avails)
	if snap.NumSlots() == 0 {
		return nil, apperrors.ScheduleUnsolvable(fmt.Sprintf("排班计划 %s 没有需要分配的人数", scheduleID))
	}

	if opts.Resume {
		existing, err := b.source.ListAssignments(ctx, scheduleID)
		if err != nil {
			return nil, fmt.Errorf("查询已有分配失败: %w", err)
		}
		seeded := snap.seed(existing)
		b.log.Debug().
			Str("schedule_id", scheduleID.String()).
			Int("existing", len(existing)).
			Int("seeded", seeded).
			Msg("使用已有分配作为初始解")
	}

	b.log.Debug().
		Str("schedule_id", scheduleID.String()).
		Int("shifts", len(shifts)).
		Int("employees", len(candidates)).
		Int("slots", snap.NumSlots()).
		Msg("规划快照构建完成")

	return snap, nil
}

// NewSnapshot 按班次所需人数生成槽位，所有槽位初始为未分配
func NewSnapshot(
	schedule *model.ScheduleWindow,
	shifts []*model.ShiftSlot,
	employees []*model.EmployeeCandidate,
	avails []*model.EmployeeAvailability,
) *Snapshot {
	snap := &Snapshot{
		Schedule:       schedule,
		Shifts:         shifts,
		Employees:      employees,
		Availabilities: avails,
	}
	for i, sh := range shifts {
		for n := 0; n < sh.RequiredEmployees; n++ {
			snap.Slots = append(snap.Slots, Slot{Shift: i, Start: sh.Start, End: sh.End})
		}
	}
	snap.Initial = make([]int, len(snap.Slots))
	for i := range snap.Initial {
		snap.Initial[i] = Unassigned
	}
	snap.index()
	return snap
}

// seed 将已持久化的分配放入对应班次的空槽位，返回放入的数量
// 只在构建阶段调用，之后快照只读
func (s *Snapshot) seed(existing []*model.Assignment) int {
	seeded := 0
	for _, a := range existing {
		si, ok := s.shiftIndex[a.ShiftID]
		if !ok {
			continue
		}
		ei, ok := s.employeeIndex[a.EmployeeID]
		if !ok {
			continue
		}
		for slot, sl := range s.Slots {
			if sl.Shift == si && s.Initial[slot] == Unassigned {
				s.Initial[slot] = ei
				seeded++
				break
			}
		}
	}
	return seeded
}
