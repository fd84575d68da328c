// Package assignment 提供排班分配的整体替换（写入路径）
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/model"
	intervals "github.com/paiban/shiftplan/pkg/validator"
)

// Request 一条分配请求
type Request struct {
	EmployeeID uuid.UUID `json:"employee_id" yaml:"employee_id" validate:"required"`
	ShiftID    uuid.UUID `json:"shift_id" yaml:"shift_id" validate:"required"`
	Start      time.Time `json:"start" yaml:"start" validate:"required"`
	End        time.Time `json:"end" yaml:"end" validate:"required"`
}

// ReplaceRequest 替换一个排班计划的全部分配，空列表表示清空
type ReplaceRequest struct {
	ScheduleID  uuid.UUID `json:"schedule_id" yaml:"schedule_id" validate:"required"`
	Assignments []Request `json:"assignments" yaml:"assignments" validate:"dive"`
}

// Store 替换所需的存储能力
type Store interface {
	// GetSchedule 不存在或不属于 owner 时返回 nil, nil
	GetSchedule(ctx context.Context, scheduleID, ownerID uuid.UUID) (*model.ScheduleWindow, error)
	ListShifts(ctx context.Context, scheduleID uuid.UUID) ([]*model.ShiftSlot, error)
	ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]*model.EmployeeCandidate, error)
	// ReplaceAssignments 在一个事务内删除旧分配并写入新分配
	ReplaceAssignments(ctx context.Context, scheduleID uuid.UUID, assignments []*model.Assignment) error
}

// Replacer 分配替换服务
type Replacer struct {
	store     Store
	validator *validator.Validate
	detector  *intervals.ConflictDetector
	logger    *logger.SchedulerLogger
}

// NewReplacer 创建替换服务
func NewReplacer(store Store, validate *validator.Validate, log *logger.SchedulerLogger) *Replacer {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = logger.NewSchedulerLogger()
	}
	return &Replacer{
		store:     store,
		validator: validate,
		detector:  intervals.NewConflictDetector(&intervals.DetectorConfig{CheckShiftBounds: true, StopOnFirst: true}),
		logger:    log,
	}
}

// Replace 校验并原子替换排班计划的分配
// 任一校验失败都不会修改已持久化的数据
func (r *Replacer) Replace(ctx context.Context, requester model.Requester, req ReplaceRequest) ([]*model.Assignment, error) {
	assignments, err := r.prepare(ctx, requester, req)
	if err != nil {
		r.logger.ReplaceRejected(req.ScheduleID.String(), err)
		return nil, err
	}

	if err := r.store.ReplaceAssignments(ctx, req.ScheduleID, assignments); err != nil {
		r.logger.ReplaceRejected(req.ScheduleID.String(), err)
		if isAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "替换分配失败")
	}
	return assignments, nil
}

// prepare 依次执行格式校验、引用解析、区间校验和重叠检测
func (r *Replacer) prepare(ctx context.Context, requester model.Requester, req ReplaceRequest) ([]*model.Assignment, error) {
	assignments, shifts, err := r.resolve(ctx, requester, req)
	if err != nil {
		return nil, err
	}

	// 区间有效且位于班次范围内
	for _, a := range assignments {
		if err := intervals.ValidateInterval(a.Start, a.End); err != nil {
			return nil, err
		}
		if shift := shifts[a.ShiftID]; !intervals.IsSubsetOf(a.Range(), shift.Range()) {
			return nil, apperrors.InvalidDateRange(a.Start, a.End,
				fmt.Sprintf("分配时间必须位于班次 %s 的时间范围内", shift.ID))
		}
	}

	// 同一员工的分配两两不重叠
	if err := r.detector.FirstOverlap(assignments); err != nil {
		return nil, err
	}

	return assignments, nil
}

// resolve 校验请求格式并解析员工和班次引用
func (r *Replacer) resolve(ctx context.Context, requester model.Requester, req ReplaceRequest) ([]*model.Assignment, map[uuid.UUID]*model.ShiftSlot, error) {
	if err := r.validator.Struct(req); err != nil {
		return nil, nil, toValidationError(err)
	}

	schedule, err := r.store.GetSchedule(ctx, req.ScheduleID, requester.Owner())
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班计划失败")
	}
	if schedule == nil {
		return nil, nil, apperrors.NotFound("schedule", req.ScheduleID.String())
	}

	shifts, err := r.store.ListShifts(ctx, req.ScheduleID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询班次失败")
	}
	members, err := r.store.ListTeamMembers(ctx, schedule.TeamID)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询团队成员失败")
	}

	shiftByID := make(map[uuid.UUID]*model.ShiftSlot, len(shifts))
	for _, s := range shifts {
		shiftByID[s.ID] = s
	}
	memberSet := make(map[uuid.UUID]struct{}, len(members))
	for _, m := range members {
		memberSet[m.ID] = struct{}{}
	}

	assignments := make([]*model.Assignment, 0, len(req.Assignments))
	for _, item := range req.Assignments {
		if _, ok := memberSet[item.EmployeeID]; !ok {
			return nil, nil, apperrors.NotFound("employee", item.EmployeeID.String())
		}
		if _, ok := shiftByID[item.ShiftID]; !ok {
			return nil, nil, apperrors.NotFound("shift", item.ShiftID.String())
		}
		assignments = append(assignments, &model.Assignment{
			BaseModel:  model.NewBaseModel(),
			ScheduleID: req.ScheduleID,
			EmployeeID: item.EmployeeID,
			ShiftID:    item.ShiftID,
			Start:      item.Start,
			End:        item.End,
		})
	}
	return assignments, shiftByID, nil
}

// Validate 只做校验不写入，返回全部冲突而不是第一个
func (r *Replacer) Validate(ctx context.Context, requester model.Requester, req ReplaceRequest) ([]intervals.Conflict, error) {
	assignments, shifts, err := r.resolve(ctx, requester, req)
	if err != nil {
		return nil, err
	}
	return intervals.NewConflictDetector(nil).DetectAll(assignments, shifts), nil
}

// FromAssignments 把求解结果转换为替换请求
func FromAssignments(scheduleID uuid.UUID, assignments []*model.Assignment) ReplaceRequest {
	req := ReplaceRequest{ScheduleID: scheduleID, Assignments: make([]Request, 0, len(assignments))}
	for _, a := range assignments {
		req.Assignments = append(req.Assignments, Request{
			EmployeeID: a.EmployeeID,
			ShiftID:    a.ShiftID,
			Start:      a.Start,
			End:        a.End,
		})
	}
	return req
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求格式无效")
	}
	ve := &apperrors.ValidationErrors{}
	for _, fe := range fieldErrs {
		ve.Add(fe.Namespace(), fmt.Sprintf("校验规则 '%s' 未通过", fe.Tag()))
	}
	return ve.ToAppError()
}

func isAppError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}
