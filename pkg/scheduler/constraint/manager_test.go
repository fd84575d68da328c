package constraint

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	c := &MockConstraint{
		name:     "test",
		typ:      Type("test_type"),
		category: CategoryHard,
	}
	manager.Register(c)
	manager.Register(&MockConstraint{name: "replaced", typ: Type("test_type"), category: CategoryHard})

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Errorf("Expected 1 constraint, got %d", len(constraints))
	}
	if manager.GetConstraint("test_type").Name() != "replaced" {
		t.Error("Expected same-type constraint to be replaced")
	}
}

func TestManager_Ordering(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "soft1", typ: Type("soft1"), category: CategorySoft})
	manager.Register(&MockConstraint{name: "hard1", typ: Type("hard1"), category: CategoryHard})

	all := manager.GetAll()
	if len(all) != 2 || manager.Count() != 2 {
		t.Fatalf("Expected 2 constraints, got %d", len(all))
	}
	if all[0].Category() != CategoryHard || all[1].Category() != CategorySoft {
		t.Error("Expected hard constraints first")
	}
}

func TestManager_Evaluate(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "pass", typ: Type("pass"), category: CategoryHard, pass: true})
	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft, penalty: 2})

	ctx := NewContext(testSnapshot(2, 2), nil)

	result := manager.Evaluate(ctx)

	if !result.IsValid {
		t.Error("Expected valid result when no hard constraint fails")
	}
	if result.Score != score.Of(0, -2) {
		t.Errorf("Expected 0hard/-2soft, got %s", result.Score)
	}
	if len(result.SoftViolations) != 1 {
		t.Errorf("Expected 1 soft violation, got %d", len(result.SoftViolations))
	}
	if got := manager.Score(ctx); got != score.Of(0, -2) {
		t.Errorf("Score() = %s", got)
	}
}

func TestContext_SetEmployee(t *testing.T) {
	ctx := NewContext(testSnapshot(3, 2), nil)

	ctx.SetEmployee(0, 1)
	ctx.SetEmployee(1, 1)
	ctx.SetEmployee(2, 0)

	if len(ctx.SlotsOf(1)) != 2 || len(ctx.SlotsOf(0)) != 1 {
		t.Fatalf("SlotsOf() = %v / %v", ctx.SlotsOf(0), ctx.SlotsOf(1))
	}

	ctx.SetEmployee(0, planning.Unassigned)
	if got := ctx.SlotsOf(1); len(got) != 1 || got[0] != 1 {
		t.Errorf("SlotsOf(1) after unassign = %v, expected [1]", got)
	}

	ctx.SetEmployee(2, 1)
	if len(ctx.SlotsOf(0)) != 0 || len(ctx.SlotsOf(1)) != 2 {
		t.Errorf("SlotsOf() after move = %v / %v", ctx.SlotsOf(0), ctx.SlotsOf(1))
	}
	if ctx.SlotsOf(planning.Unassigned) != nil {
		t.Error("unassigned has no slots")
	}

	want := []int{planning.Unassigned, 1, 1}
	for i, e := range ctx.Employees() {
		if e != want[i] {
			t.Errorf("Employees()[%d] = %d, expected %d", i, e, want[i])
		}
	}
}

// testSnapshot 一个班次，slots 个槽位，employees 名员工
func testSnapshot(slots, employees int) *planning.Snapshot {
	start := time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)
	shift := &model.ShiftSlot{
		BaseModel:         model.BaseModel{ID: uuid.New()},
		Start:             start,
		End:               start.Add(8 * time.Hour),
		RequiredEmployees: slots,
	}
	emps := make([]*model.EmployeeCandidate, employees)
	for i := range emps {
		emps[i] = &model.EmployeeCandidate{ID: uuid.New()}
	}
	return planning.NewSnapshot(&model.ScheduleWindow{}, []*model.ShiftSlot{shift}, emps, nil)
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	weight   int
	pass     bool
	penalty  int
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Weight() int {
	if m.weight == 0 {
		return 1
	}
	return m.weight
}

func (m *MockConstraint) points() score.Score {
	if m.pass {
		return score.Zero
	}
	if m.category == CategoryHard {
		return score.Of(-m.penalty, 0)
	}
	return score.Of(0, -m.penalty)
}

func (m *MockConstraint) Evaluate(ctx *Context) (score.Score, []ViolationDetail) {
	if m.pass {
		return score.Zero, nil
	}
	return m.points(), []ViolationDetail{
		{ConstraintName: m.name, Message: "违反约束", Penalty: m.penalty},
	}
}

func (m *MockConstraint) Impact(ctx *Context, slots, employees []int) score.Score {
	return m.points()
}
