package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/paiban/shiftplan/pkg/assignment"
	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
)

// MemoryStore 内存存储，用于命令行离线求解和测试
type MemoryStore struct {
	mu             sync.RWMutex
	schedules      map[uuid.UUID]*model.ScheduleWindow
	shifts         map[uuid.UUID][]*model.ShiftSlot // scheduleID -> 班次
	availabilities map[uuid.UUID][]*model.EmployeeAvailability
	employees      map[uuid.UUID]*model.EmployeeCandidate
	teams          map[uuid.UUID][]uuid.UUID // teamID -> 员工ID
	assignments    map[uuid.UUID][]*model.Assignment
}

var (
	_ planning.Source  = (*MemoryStore)(nil)
	_ assignment.Store = (*MemoryStore)(nil)
)

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules:      make(map[uuid.UUID]*model.ScheduleWindow),
		shifts:         make(map[uuid.UUID][]*model.ShiftSlot),
		availabilities: make(map[uuid.UUID][]*model.EmployeeAvailability),
		employees:      make(map[uuid.UUID]*model.EmployeeCandidate),
		teams:          make(map[uuid.UUID][]uuid.UUID),
		assignments:    make(map[uuid.UUID][]*model.Assignment),
	}
}

// AddSchedule 添加排班计划
func (s *MemoryStore) AddSchedule(schedule *model.ScheduleWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[schedule.ID] = schedule
}

// AddShift 添加班次
func (s *MemoryStore) AddShift(shift *model.ShiftSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[shift.ScheduleID] = append(s.shifts[shift.ScheduleID], shift)
}

// AddAvailability 添加员工可用时间
func (s *MemoryStore) AddAvailability(a *model.EmployeeAvailability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availabilities[a.ShiftID] = append(s.availabilities[a.ShiftID], a)
}

// AddTeamMember 添加团队成员
func (s *MemoryStore) AddTeamMember(teamID uuid.UUID, e *model.EmployeeCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[e.ID]; !ok {
		s.employees[e.ID] = e
	}
	s.teams[teamID] = append(s.teams[teamID], e.ID)
}

// GetSchedule 查询属于 owner 的排班计划
func (s *MemoryStore) GetSchedule(_ context.Context, scheduleID, ownerID uuid.UUID) (*model.ScheduleWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.schedules[scheduleID]
	if !ok || schedule.OwnerID != ownerID {
		return nil, nil
	}
	return schedule, nil
}

// ListShifts 查询排班计划的班次
func (s *MemoryStore) ListShifts(_ context.Context, scheduleID uuid.UUID) ([]*model.ShiftSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shifts := append([]*model.ShiftSlot(nil), s.shifts[scheduleID]...)
	sort.SliceStable(shifts, func(i, j int) bool { return shifts[i].Start.Before(shifts[j].Start) })
	return shifts, nil
}

// ListAvailabilities 查询给定班次上的员工可用时间
func (s *MemoryStore) ListAvailabilities(_ context.Context, shiftIDs []uuid.UUID) ([]*model.EmployeeAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.EmployeeAvailability
	for _, id := range shiftIDs {
		out = append(out, s.availabilities[id]...)
	}
	return out, nil
}

// ListTeamMembers 查询团队成员
func (s *MemoryStore) ListTeamMembers(_ context.Context, teamID uuid.UUID) ([]*model.EmployeeCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]*model.EmployeeCandidate, 0, len(s.teams[teamID]))
	for _, id := range s.teams[teamID] {
		members = append(members, s.employees[id])
	}
	return members, nil
}

// ListAssignments 查询排班计划已持久化的分配
func (s *MemoryStore) ListAssignments(_ context.Context, scheduleID uuid.UUID) ([]*model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.Assignment(nil), s.assignments[scheduleID]...), nil
}

// ReplaceAssignments 整体替换分配，持有写锁期间完成替换
func (s *MemoryStore) ReplaceAssignments(_ context.Context, scheduleID uuid.UUID, assignments []*model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[scheduleID]; !ok {
		return apperrors.NotFound("schedule", scheduleID.String())
	}
	if id, ok := firstUnknownShift(assignments, func(id uuid.UUID) bool {
		for _, sh := range s.shifts[scheduleID] {
			if sh.ID == id {
				return true
			}
		}
		return false
	}); ok {
		return apperrors.NotFound("shift", id.String())
	}
	s.assignments[scheduleID] = append([]*model.Assignment(nil), assignments...)
	return nil
}
