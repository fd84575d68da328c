package solver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftplan/pkg/assignment"
	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
)

// fakeStore 同时提供规划数据和分配写入
type fakeStore struct {
	schedule    *model.ScheduleWindow
	shifts      []*model.ShiftSlot
	avails      []*model.EmployeeAvailability
	members     []*model.EmployeeCandidate
	assignments []*model.Assignment
}

func (f *fakeStore) GetSchedule(_ context.Context, id, owner uuid.UUID) (*model.ScheduleWindow, error) {
	if f.schedule == nil || f.schedule.ID != id || f.schedule.OwnerID != owner {
		return nil, nil
	}
	return f.schedule, nil
}

func (f *fakeStore) ListShifts(context.Context, uuid.UUID) ([]*model.ShiftSlot, error) {
	return f.shifts, nil
}

func (f *fakeStore) ListAvailabilities(context.Context, []uuid.UUID) ([]*model.EmployeeAvailability, error) {
	return f.avails, nil
}

func (f *fakeStore) ListTeamMembers(context.Context, uuid.UUID) ([]*model.EmployeeCandidate, error) {
	return f.members, nil
}

func (f *fakeStore) ListAssignments(context.Context, uuid.UUID) ([]*model.Assignment, error) {
	return f.assignments, nil
}

func (f *fakeStore) ReplaceAssignments(_ context.Context, _ uuid.UUID, assignments []*model.Assignment) error {
	f.assignments = assignments
	return nil
}

// newStore 班次 08:00-16:00 需要2人，3名员工都可用
func newStore() (*fakeStore, model.Requester) {
	owner := uuid.New()
	schedule := &model.ScheduleWindow{BaseModel: model.NewBaseModel(), OwnerID: owner, TeamID: uuid.New()}
	shift := &model.ShiftSlot{
		BaseModel:         model.NewBaseModel(),
		ScheduleID:        schedule.ID,
		Start:             day.Add(8 * time.Hour),
		End:               day.Add(16 * time.Hour),
		RequiredEmployees: 2,
	}
	store := &fakeStore{schedule: schedule, shifts: []*model.ShiftSlot{shift}}
	for _, name := range []string{"E1", "E2", "E3"} {
		e := &model.EmployeeCandidate{ID: uuid.New(), Name: name}
		store.members = append(store.members, e)
		store.avails = append(store.avails, &model.EmployeeAvailability{
			BaseModel: model.NewBaseModel(), EmployeeID: e.ID, ShiftID: shift.ID, Start: shift.Start, End: shift.End,
		})
	}
	return store, model.Requester{UserID: owner, Role: model.RoleManager}
}

func newService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	m := startManager(t, quickEngine(), ManagerConfig{Workers: 1})
	replacer := assignment.NewReplacer(store, nil, nopLogger)
	return NewService(planning.NewBuilder(store), m, replacer, ServiceConfig{AwaitTimeout: 5 * time.Second, Seed: 1})
}

func TestService_Solve(t *testing.T) {
	store, requester := newStore()
	svc := newService(t, store)

	result, err := svc.Solve(context.Background(), store.schedule.ID, requester)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if !result.Feasible || result.Score.Hard != 0 || result.Score.Soft < 2 {
		t.Errorf("Expected feasible result with soft >= 2, got %s", result.Score)
	}
	if len(result.Assignments) != 2 || result.Assignments[0].EmployeeID == result.Assignments[1].EmployeeID {
		t.Errorf("Expected two distinct employees, got %d assignments", len(result.Assignments))
	}
	if len(store.assignments) != 0 {
		t.Error("Solve must not persist")
	}
	if r := result.Report; r == nil || r.Coverage.FilledSlots != 2 || len(r.Fairness.EmployeeStats) != 3 {
		t.Errorf("unexpected report: %+v", result.Report)
	}
}

// 没有班次的排班计划不可求解
func TestService_Solve_NoShifts(t *testing.T) {
	store, requester := newStore()
	store.shifts = nil
	svc := newService(t, store)

	_, err := svc.Solve(context.Background(), store.schedule.ID, requester)
	if !apperrors.Is(err, apperrors.CodeScheduleUnsolvable) {
		t.Errorf("Expected SCHEDULE_UNSOLVABLE, got %v", err)
	}
}

func TestService_Solve_UnknownSchedule(t *testing.T) {
	store, requester := newStore()
	svc := newService(t, store)

	_, err := svc.Solve(context.Background(), uuid.New(), requester)
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestService_SolveAndApply(t *testing.T) {
	store, requester := newStore()
	svc := newService(t, store)

	result, err := svc.SolveAndApply(context.Background(), store.schedule.ID, requester)
	if err != nil {
		t.Fatalf("SolveAndApply() error = %v", err)
	}
	if len(store.assignments) != 2 {
		t.Fatalf("Expected 2 persisted assignments, got %d", len(store.assignments))
	}
	for i, a := range result.Assignments {
		if a != store.assignments[i] {
			t.Errorf("result assignment %d differs from persisted row", i)
		}
	}
}

func TestService_SolveAndApply_WithoutReplacer(t *testing.T) {
	store, requester := newStore()
	m := startManager(t, quickEngine(), ManagerConfig{Workers: 1})
	svc := NewService(planning.NewBuilder(store), m, nil, ServiceConfig{})

	if _, err := svc.SolveAndApply(context.Background(), store.schedule.ID, requester); err == nil {
		t.Error("Expected error without replacer")
	}
}

func TestService_Apply_Infeasible(t *testing.T) {
	store, requester := newStore()
	svc := newService(t, store)
	result := &SolveResult{ScheduleID: store.schedule.ID, Feasible: false}

	got, err := svc.Apply(context.Background(), requester, result)
	if !apperrors.Is(err, apperrors.CodeScheduleUnsolvable) {
		t.Fatalf("Expected SCHEDULE_UNSOLVABLE, got %v", err)
	}
	if got != result {
		t.Error("Expected the unsaved result to be returned")
	}
	if store.assignments != nil {
		t.Error("Infeasible result must not be written")
	}
}
