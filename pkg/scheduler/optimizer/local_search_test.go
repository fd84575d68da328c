package optimizer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

var day = time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

// scenarioA 班次 08:00-16:00 需要2人，3名员工都可用
func scenarioA() *planning.Snapshot {
	shift := &model.ShiftSlot{
		BaseModel:         model.BaseModel{ID: uuid.New()},
		Start:             day.Add(8 * time.Hour),
		End:               day.Add(16 * time.Hour),
		RequiredEmployees: 2,
	}
	var emps []*model.EmployeeCandidate
	var avails []*model.EmployeeAvailability
	for _, name := range []string{"E1", "E2", "E3"} {
		e := &model.EmployeeCandidate{ID: uuid.New(), Name: name}
		emps = append(emps, e)
		avails = append(avails, &model.EmployeeAvailability{
			EmployeeID: e.ID, ShiftID: shift.ID, Start: shift.Start, End: shift.End,
		})
	}
	schedule := &model.ScheduleWindow{BaseModel: model.BaseModel{ID: uuid.New()}}
	return planning.NewSnapshot(schedule, []*model.ShiftSlot{shift}, emps, avails)
}

// largerSnapshot 多个相互重叠的班次，员工只对部分班次可用
func largerSnapshot(seed int64) *planning.Snapshot {
	r := rand.New(rand.NewSource(seed))
	var shifts []*model.ShiftSlot
	for i := 0; i < 8; i++ {
		start := day.Add(time.Duration(i*3) * time.Hour)
		shifts = append(shifts, &model.ShiftSlot{
			BaseModel:         model.BaseModel{ID: uuid.New()},
			Start:             start,
			End:               start.Add(4 * time.Hour),
			RequiredEmployees: 1 + r.Intn(3),
		})
	}
	var emps []*model.EmployeeCandidate
	var avails []*model.EmployeeAvailability
	for i := 0; i < 6; i++ {
		e := &model.EmployeeCandidate{ID: uuid.New()}
		emps = append(emps, e)
		for _, s := range shifts {
			if r.Intn(2) == 0 {
				avails = append(avails, &model.EmployeeAvailability{
					EmployeeID: e.ID, ShiftID: s.ID, Start: s.Start, End: s.End,
				})
			}
		}
	}
	schedule := &model.ScheduleWindow{BaseModel: model.BaseModel{ID: uuid.New()}}
	return planning.NewSnapshot(schedule, shifts, emps, avails)
}

func testEngine(cfg *Config) *Engine {
	return NewEngine(cfg, builtin.NewDefaultManager(nil)).
		WithLogger(logger.NewSchedulerLoggerWith(zerolog.Nop()))
}

func TestEngine_ScenarioA(t *testing.T) {
	for _, acceptor := range []string{AcceptorHillClimbing, AcceptorSimulatedAnnealing, AcceptorTabu} {
		t.Run(acceptor, func(t *testing.T) {
			snap := scenarioA()
			engine := testEngine(&Config{
				MaxIterations:   5000,
				MaxTime:         5 * time.Second,
				Acceptor:        acceptor,
				InitialTemp:     1.0,
				HardWeight:      100,
				TabuSize:        20,
				SwapProbability: 0.3,
				Seed:            42,
			})

			result, err := engine.Run(context.Background(), snap)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if !result.Best.Feasible || result.Best.Score.Hard != 0 {
				t.Fatalf("Expected feasible solution, got %s", result.Best.Score)
			}
			if result.Best.Score.Soft < 2 {
				t.Errorf("Expected soft >= 2, got %s", result.Best.Score)
			}

			a, b := result.Best.Employees[0], result.Best.Employees[1]
			if a == planning.Unassigned || b == planning.Unassigned || a == b {
				t.Errorf("Expected two distinct employees, got %v", result.Best.Employees)
			}
		})
	}
}

func TestEngine_BestScoreMonotonic(t *testing.T) {
	snap := largerSnapshot(5)
	engine := testEngine(&Config{
		MaxIterations:   20000,
		Acceptor:        AcceptorSimulatedAnnealing,
		InitialTemp:     3.0,
		HardWeight:      10,
		SwapProbability: 0.5,
		Seed:            7,
	})

	result, err := engine.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := 1; i < len(result.BestHistory); i++ {
		if result.BestHistory[i].WorseThan(result.BestHistory[i-1]) {
			t.Fatalf("best score decreased at %d: %s -> %s", i, result.BestHistory[i-1], result.BestHistory[i])
		}
	}
	if result.Best.Score.WorseThan(result.Initial) {
		t.Errorf("final %s worse than initial %s", result.Best.Score, result.Initial)
	}

	// 返回的最优解得分必须与完整重算一致
	ctx := constraint.NewContext(snap, result.Best.Employees)
	if full := engine.Constraints().Score(ctx); full != result.Best.Score {
		t.Errorf("reported %s, rescored %s", result.Best.Score, full)
	}
	if result.Reason != ReasonMaxIterations && result.Reason != ReasonPlateau {
		t.Errorf("unexpected reason %s", result.Reason)
	}
}

func TestEngine_Resume(t *testing.T) {
	snap := scenarioA()
	snap.Initial[0], snap.Initial[1] = 0, 0

	engine := testEngine(&Config{MaxIterations: 3000, Acceptor: AcceptorHillClimbing, SwapProbability: 0.2, Seed: 1})
	result, err := engine.Run(context.Background(), snap)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 重复槽位扣1硬分，两个可用奖励减去同日一对的扣分
	if result.Initial != score.Of(-1, 1) {
		t.Errorf("Initial = %s, expected -1hard/1soft", result.Initial)
	}
	if !result.Best.Feasible {
		t.Errorf("Expected search to repair duplicate slot, got %s", result.Best.Score)
	}
}

func TestEngine_Cancel(t *testing.T) {
	snap := largerSnapshot(9)
	engine := testEngine(&Config{MaxTime: time.Minute, Acceptor: AcceptorSimulatedAnnealing, InitialTemp: 1, SwapProbability: 0.5, Seed: 3})

	search, err := engine.NewSearch(snap)
	if err != nil {
		t.Fatalf("NewSearch() error = %v", err)
	}
	if search.State() != StateInitializing {
		t.Errorf("State() = %s, expected initializing", search.State())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := search.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Cancelled || result.Reason != ReasonCancelled {
		t.Errorf("Expected cancelled result, got reason %s", result.Reason)
	}
	if search.State() != StateTerminated {
		t.Errorf("State() = %s, expected terminated", search.State())
	}
	if len(result.Best.Employees) != snap.NumSlots() {
		t.Errorf("best solution has %d slots, expected %d", len(result.Best.Employees), snap.NumSlots())
	}
}

func TestEngine_InvalidInput(t *testing.T) {
	snap := scenarioA()

	_, err := testEngine(&Config{MaxIterations: 10, Acceptor: "great_deluge"}).Run(context.Background(), snap)
	if !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT for unknown acceptor, got %v", err)
	}

	_, err = testEngine(&Config{}).Run(context.Background(), snap)
	if !apperrors.Is(err, apperrors.CodeInvalidInput) {
		t.Errorf("Expected INVALID_INPUT without budget, got %v", err)
	}

	empty := planning.NewSnapshot(&model.ScheduleWindow{}, nil, nil, nil)
	_, err = testEngine(DefaultConfig()).Run(context.Background(), empty)
	if !apperrors.Is(err, apperrors.CodeScheduleUnsolvable) {
		t.Errorf("Expected SCHEDULE_UNSOLVABLE, got %v", err)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	cfg := &Config{MaxIterations: 4000, Acceptor: AcceptorSimulatedAnnealing, InitialTemp: 2, HardWeight: 10, SwapProbability: 0.4, Seed: 99}
	snap := largerSnapshot(21)

	r1, _ := testEngine(cfg).Run(context.Background(), snap)
	r2, _ := testEngine(cfg).Run(context.Background(), snap)

	if r1.Best.Score != r2.Best.Score || r1.Iterations != r2.Iterations {
		t.Errorf("same seed should reproduce: %s/%d vs %s/%d", r1.Best.Score, r1.Iterations, r2.Best.Score, r2.Iterations)
	}
}
