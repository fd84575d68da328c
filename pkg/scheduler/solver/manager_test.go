package solver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint/builtin"
	"github.com/paiban/shiftplan/pkg/scheduler/optimizer"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
)

var day = time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

var nopLogger = logger.NewSchedulerLoggerWith(zerolog.Nop())

// testSnapshot 班次 08:00-16:00 需要2人，3名员工都可用
func testSnapshot(scheduleID uuid.UUID) *planning.Snapshot {
	shift := &model.ShiftSlot{
		BaseModel:         model.BaseModel{ID: uuid.New()},
		ScheduleID:        scheduleID,
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
	schedule := &model.ScheduleWindow{BaseModel: model.BaseModel{ID: scheduleID}}
	return planning.NewSnapshot(schedule, []*model.ShiftSlot{shift}, emps, avails)
}

func quickEngine() *optimizer.Engine {
	return optimizer.NewEngine(&optimizer.Config{
		MaxIterations:   2000,
		Acceptor:        optimizer.AcceptorHillClimbing,
		SwapProbability: 0.3,
		Seed:            1,
	}, builtin.NewDefaultManager(nil)).WithLogger(nopLogger)
}

// slowEngine 只在取消或30秒后结束
func slowEngine() *optimizer.Engine {
	return optimizer.NewEngine(&optimizer.Config{
		MaxTime:         30 * time.Second,
		Acceptor:        optimizer.AcceptorSimulatedAnnealing,
		InitialTemp:     1,
		SwapProbability: 0.5,
		Seed:            1,
	}, builtin.NewDefaultManager(nil)).WithLogger(nopLogger)
}

func startManager(t *testing.T, engine *optimizer.Engine, cfg ManagerConfig, opts ...Option) *Manager {
	t.Helper()
	opts = append(opts, WithLogger(nopLogger))
	m := NewManager(engine, cfg, opts...)
	m.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

type recordingObserver struct {
	mu                 sync.Mutex
	submitted, started int
	rejected           []apperrors.Code
	finished           []JobStatus
}

func (o *recordingObserver) JobSubmitted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted++
}

func (o *recordingObserver) JobRejected(c apperrors.Code) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, c)
}

func (o *recordingObserver) JobStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) JobFinished(info JobInfo, _ *SolveResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, info.Status)
}

func TestManager_SubmitAwait(t *testing.T) {
	obs := &recordingObserver{}
	m := startManager(t, quickEngine(), ManagerConfig{Workers: 1, QueueSize: 4}, WithObserver(obs))

	scheduleID := uuid.New()
	jobID, err := m.Submit(scheduleID, testSnapshot(scheduleID))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, err := m.Await(context.Background(), jobID, 5*time.Second)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if !result.Feasible || result.Score.Hard != 0 {
		t.Errorf("Expected feasible result, got %s", result.Score)
	}
	if len(result.Assignments) != 2 {
		t.Errorf("Expected 2 assignments, got %d", len(result.Assignments))
	}
	if result.Statistics.FilledSlots != 2 || result.Statistics.FillRate != 1 {
		t.Errorf("Statistics = %+v", result.Statistics)
	}
	if result.JobID != jobID || result.ScheduleID != scheduleID {
		t.Errorf("result ids = %s/%s", result.JobID, result.ScheduleID)
	}

	info, err := m.Status(jobID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if info.Status != JobCompleted || info.SearchState != optimizer.StateTerminated {
		t.Errorf("Status = %s/%s", info.Status, info.SearchState)
	}
	if _, ok := m.ActiveJob(scheduleID); ok {
		t.Error("completed job should release the schedule")
	}
	if obs.submitted != 1 || obs.started != 1 || len(obs.finished) != 1 || obs.finished[0] != JobCompleted {
		t.Errorf("observer = %+v", obs)
	}
}

// 同一排班计划已有运行中任务时第二次提交被拒绝
func TestManager_JobAlreadyRunning(t *testing.T) {
	m := startManager(t, slowEngine(), ManagerConfig{Workers: 2, QueueSize: 4})

	scheduleID := uuid.New()
	first, err := m.Submit(scheduleID, testSnapshot(scheduleID))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err = m.Submit(scheduleID, testSnapshot(scheduleID))
	if !apperrors.Is(err, apperrors.CodeJobAlreadyRunning) {
		t.Fatalf("Expected JOB_ALREADY_RUNNING, got %v", err)
	}

	other := uuid.New()
	otherJob, err := m.Submit(other, testSnapshot(other))
	if err != nil {
		t.Fatalf("different schedule should be accepted: %v", err)
	}

	for _, id := range []uuid.UUID{first, otherJob} {
		if err := m.Cancel(id); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
	}

	result, err := m.Await(context.Background(), first, 5*time.Second)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	// 取消可能发生在第一次迭代之前，此时最优解即初始解
	if !result.Cancelled {
		t.Errorf("Expected cancelled result, got %+v", result)
	}
	if st := result.Statistics; st == nil || result.Score.WorseThan(st.InitialScore) {
		t.Errorf("best score %s must not be worse than the initial score", result.Score)
	}
	info, _ := m.Status(first)
	if info.Status != JobCancelled {
		t.Errorf("Status = %s, expected cancelled", info.Status)
	}

	if _, err := m.Submit(scheduleID, testSnapshot(scheduleID)); err != nil {
		t.Errorf("schedule should accept a new job after cancel: %v", err)
	}
}

func TestManager_AwaitTimeoutKeepsJob(t *testing.T) {
	m := startManager(t, slowEngine(), ManagerConfig{Workers: 1, QueueSize: 1})

	scheduleID := uuid.New()
	jobID, err := m.Submit(scheduleID, testSnapshot(scheduleID))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err = m.Await(context.Background(), jobID, 20*time.Millisecond)
	if !apperrors.Is(err, apperrors.CodeSolverTimeout) {
		t.Fatalf("Expected SOLVER_TIMEOUT, got %v", err)
	}

	info, err := m.Status(jobID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if info.Status.Terminal() {
		t.Errorf("timeout must not stop the job, status = %s", info.Status)
	}
	if _, ok := m.ActiveJob(scheduleID); !ok {
		t.Error("job should still hold the schedule")
	}

	_ = m.Cancel(jobID)
	if _, err := m.Await(context.Background(), jobID, 5*time.Second); err != nil {
		t.Errorf("Await() after cancel error = %v", err)
	}
}

func TestManager_AwaitContext(t *testing.T) {
	m := startManager(t, slowEngine(), ManagerConfig{Workers: 1})

	scheduleID := uuid.New()
	jobID, _ := m.Submit(scheduleID, testSnapshot(scheduleID))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Await(ctx, jobID, time.Minute); err != context.Canceled {
		t.Errorf("Await() error = %v, expected context.Canceled", err)
	}
	_ = m.Cancel(jobID)
}

type panicConstraint struct{}

func (panicConstraint) Name() string                  { return "panic" }
func (panicConstraint) Type() constraint.Type         { return "panic" }
func (panicConstraint) Category() constraint.Category { return constraint.CategoryHard }
func (panicConstraint) Weight() int                   { return 1 }
func (panicConstraint) Evaluate(*constraint.Context) (score.Score, []constraint.ViolationDetail) {
	panic("boom")
}
func (panicConstraint) Impact(*constraint.Context, []int, []int) score.Score {
	panic("boom")
}

func TestManager_WorkerPanic(t *testing.T) {
	cm := constraint.NewManager()
	cm.Register(panicConstraint{})
	engine := optimizer.NewEngine(&optimizer.Config{MaxIterations: 10}, cm).WithLogger(nopLogger)
	obs := &recordingObserver{}
	m := startManager(t, engine, ManagerConfig{Workers: 1}, WithObserver(obs))

	scheduleID := uuid.New()
	jobID, err := m.Submit(scheduleID, testSnapshot(scheduleID))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	result, err := m.Await(context.Background(), jobID, 5*time.Second)
	if !apperrors.Is(err, apperrors.CodeSolverFailure) {
		t.Fatalf("Expected SOLVER_FAILURE, got %v", err)
	}
	if result != nil {
		t.Error("failed job has no result")
	}

	info, _ := m.Status(jobID)
	if info.Status != JobFailed || info.Error == "" {
		t.Errorf("Status = %+v", info)
	}
	if _, ok := m.ActiveJob(scheduleID); ok {
		t.Error("failed job should release the schedule")
	}

	// 工作协程仍然可用
	again, err := m.Submit(scheduleID, testSnapshot(scheduleID))
	if err != nil {
		t.Fatalf("Submit() after panic error = %v", err)
	}
	if _, err := m.Await(context.Background(), again, 5*time.Second); !apperrors.Is(err, apperrors.CodeSolverFailure) {
		t.Errorf("Expected SOLVER_FAILURE, got %v", err)
	}
}

func TestManager_QueueFull(t *testing.T) {
	obs := &recordingObserver{}
	m := startManager(t, slowEngine(), ManagerConfig{Workers: 1, QueueSize: 1}, WithObserver(obs))

	var accepted []uuid.UUID
	full := 0
	for i := 0; i < 3; i++ {
		id := uuid.New()
		jobID, err := m.Submit(id, testSnapshot(id))
		switch {
		case err == nil:
			accepted = append(accepted, jobID)
		case apperrors.Is(err, apperrors.CodeQueueFull):
			full++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}

	// 1个运行 + 1个排队，第三个必然被拒绝
	if full == 0 {
		t.Error("Expected at least one QUEUE_FULL rejection")
	}
	if len(obs.rejected) != full {
		t.Errorf("observer rejected = %v", obs.rejected)
	}
	for _, id := range accepted {
		_ = m.Cancel(id)
	}
}

func TestManager_UnknownJob(t *testing.T) {
	m := startManager(t, quickEngine(), ManagerConfig{})
	id := uuid.New()

	if _, err := m.Await(context.Background(), id, time.Second); !apperrors.Is(err, apperrors.CodeJobNotFound) {
		t.Errorf("Await() error = %v", err)
	}
	if err := m.Cancel(id); !apperrors.Is(err, apperrors.CodeJobNotFound) {
		t.Errorf("Cancel() error = %v", err)
	}
	if _, err := m.Status(id); !apperrors.Is(err, apperrors.CodeJobNotFound) {
		t.Errorf("Status() error = %v", err)
	}
}

func TestManager_NotStarted(t *testing.T) {
	m := NewManager(quickEngine(), ManagerConfig{}, WithLogger(nopLogger))
	id := uuid.New()
	if _, err := m.Submit(id, testSnapshot(id)); !apperrors.Is(err, apperrors.CodeSolverFailure) {
		t.Errorf("Submit() before Start error = %v", err)
	}
}

func TestManager_Shutdown(t *testing.T) {
	m := NewManager(slowEngine(), ManagerConfig{Workers: 1, QueueSize: 2}, WithLogger(nopLogger))
	m.Start(context.Background())

	var jobs []uuid.UUID
	for i := 0; i < 2; i++ {
		id := uuid.New()
		jobID, err := m.Submit(id, testSnapshot(id))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		jobs = append(jobs, jobID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for _, id := range jobs {
		info, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if !info.Status.Terminal() {
			t.Errorf("job %s status %s after shutdown", id, info.Status)
		}
	}

	id := uuid.New()
	if _, err := m.Submit(id, testSnapshot(id)); err == nil {
		t.Error("Submit() after Shutdown should fail")
	}
}

func TestManager_Retention(t *testing.T) {
	m := startManager(t, quickEngine(), ManagerConfig{Workers: 1, Retention: time.Millisecond})

	scheduleID := uuid.New()
	jobID, _ := m.Submit(scheduleID, testSnapshot(scheduleID))
	if _, err := m.Await(context.Background(), jobID, 5*time.Second); err != nil {
		t.Fatalf("Await() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	other := uuid.New()
	if _, err := m.Submit(other, testSnapshot(other)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := m.Status(jobID); !apperrors.Is(err, apperrors.CodeJobNotFound) {
		t.Errorf("expired job should be pruned, got %v", err)
	}
}
