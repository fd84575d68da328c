// Package solver 提供排班求解任务管理
package solver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/optimizer"
	"github.com/paiban/shiftplan/pkg/scheduler/planning"
	"github.com/paiban/shiftplan/pkg/scheduler/score"
	"github.com/paiban/shiftplan/pkg/stats"
)

// JobStatus 求解任务状态
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

// Terminal 是否为终止状态
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled || s == JobFailed
}

// Statistics 求解统计
type Statistics struct {
	TotalSlots    int                         `json:"total_slots"`
	FilledSlots   int                         `json:"filled_slots"`
	FillRate      float64                     `json:"fill_rate"`
	Iterations    int                         `json:"iterations"`
	AcceptedMoves int                         `json:"accepted_moves"`
	Improvements  int                         `json:"improvements"`
	InitialScore  score.Score                 `json:"initial_score"`
	Reason        optimizer.TerminationReason `json:"reason"`
}

// SolveResult 求解结果
type SolveResult struct {
	JobID            uuid.UUID           `json:"job_id"`
	ScheduleID       uuid.UUID           `json:"schedule_id"`
	Assignments      []*model.Assignment `json:"assignments"`
	Score            score.Score         `json:"score"`
	Feasible         bool                `json:"feasible"`
	Cancelled        bool                `json:"cancelled"`
	Statistics       *Statistics         `json:"statistics"`
	ConstraintResult *constraint.Result  `json:"constraint_result,omitempty"`
	Report           *stats.Report       `json:"report,omitempty"`
	Duration         time.Duration       `json:"duration"`
}

// Observer 任务生命周期观察者（指标采集）
type Observer interface {
	JobSubmitted()
	JobRejected(code apperrors.Code)
	JobStarted()
	// JobFinished info.StartedAt 为零值表示任务未运行即结束
	JobFinished(info JobInfo, result *SolveResult)
}

type nopObserver struct{}

func (nopObserver) JobSubmitted()                    {}
func (nopObserver) JobRejected(apperrors.Code)       {}
func (nopObserver) JobStarted()                      {}
func (nopObserver) JobFinished(JobInfo, *SolveResult) {}

// ManagerConfig 任务管理器配置
type ManagerConfig struct {
	Workers   int           `json:"workers"`    // 工作协程数
	QueueSize int           `json:"queue_size"` // 等待队列容量
	Retention time.Duration `json:"retention"`  // 终止任务保留时长
}

// DefaultManagerConfig 默认配置
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Workers:   2,
		QueueSize: 16,
		Retention: 10 * time.Minute,
	}
}

// JobInfo 任务状态快照
type JobInfo struct {
	ID          uuid.UUID       `json:"id"`
	ScheduleID  uuid.UUID       `json:"schedule_id"`
	Status      JobStatus       `json:"status"`
	SearchState optimizer.State `json:"search_state"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   time.Time       `json:"started_at,omitempty"`
	FinishedAt  time.Time       `json:"finished_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// job 一个求解任务，status/result/err 受 Manager.mu 保护
type job struct {
	id         uuid.UUID
	scheduleID uuid.UUID
	snapshot   *planning.Snapshot

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	status    JobStatus
	search    *optimizer.Search
	result    *SolveResult
	err       error
	submitted time.Time
	started   time.Time
	finished  time.Time
}

// Manager 求解任务管理器
// 固定数量的工作协程消费有界队列，同一排班计划同时最多一个活动任务
type Manager struct {
	engine   *optimizer.Engine
	cfg      ManagerConfig
	logger   *logger.SchedulerLogger
	observer Observer

	queue  chan *job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	jobs    map[uuid.UUID]*job
	active  map[uuid.UUID]uuid.UUID // scheduleID -> jobID
	started bool
	stopped bool
}

// Option 管理器选项
type Option func(*Manager)

// WithObserver 设置观察者
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithLogger 设置日志器
func WithLogger(l *logger.SchedulerLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager 创建任务管理器
func NewManager(engine *optimizer.Engine, cfg ManagerConfig, opts ...Option) *Manager {
	def := DefaultManagerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}

	m := &Manager{
		engine:   engine,
		cfg:      cfg,
		logger:   logger.NewSchedulerLogger(),
		observer: nopObserver{},
		queue:    make(chan *job, cfg.QueueSize),
		jobs:     make(map[uuid.UUID]*job),
		active:   make(map[uuid.UUID]uuid.UUID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start 启动工作协程，只生效一次
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	m.started = true
}

// Shutdown 取消所有任务并等待工作协程退出
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	for _, j := range m.jobs {
		j.cancel()
	}
	m.cancel()
	m.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	// 未被执行的排队任务直接结束
	for {
		select {
		case j := <-m.queue:
			m.finish(j, nil, errShutdown)
		default:
			return nil
		}
	}
}

var errShutdown = errors.New("求解服务已关闭")

// Submit 提交求解任务，不阻塞
// 同一排班计划已有活动任务时返回 JOB_ALREADY_RUNNING，队列已满时返回 QUEUE_FULL
func (m *Manager) Submit(scheduleID uuid.UUID, snap *planning.Snapshot) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started || m.stopped {
		return uuid.Nil, apperrors.New(apperrors.CodeSolverFailure, "求解服务未运行")
	}

	m.prune(time.Now())

	if running, ok := m.active[scheduleID]; ok {
		m.observer.JobRejected(apperrors.CodeJobAlreadyRunning)
		return uuid.Nil, apperrors.JobAlreadyRunning(scheduleID.String(), running.String())
	}

	ctx, cancel := context.WithCancel(m.ctx)
	j := &job{
		id:         uuid.New(),
		scheduleID: scheduleID,
		snapshot:   snap,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		status:     JobQueued,
		submitted:  time.Now(),
	}

	select {
	case m.queue <- j:
	default:
		cancel()
		m.observer.JobRejected(apperrors.CodeQueueFull)
		return uuid.Nil, apperrors.QueueFull(m.cfg.QueueSize)
	}

	m.jobs[j.id] = j
	m.active[scheduleID] = j.id
	m.observer.JobSubmitted()
	m.logger.JobSubmitted(j.id.String(), scheduleID.String(), snap.NumSlots(), snap.NumEmployees())

	return j.id, nil
}

// Await 等待任务结束，超时返回 SOLVER_TIMEOUT，超时不会取消任务
func (m *Manager) Await(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (*SolveResult, error) {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, apperrors.JobNotFound(jobID.String())
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-j.done:
		// done 关闭前终止状态已写入
		return j.result, j.err
	case <-timer:
		return nil, apperrors.SolverTimeout(jobID.String(), timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel 请求取消任务，搜索在下一次迭代检查时终止并返回当前最优解
func (m *Manager) Cancel(jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return apperrors.JobNotFound(jobID.String())
	}
	j.cancel()
	return nil
}

// Status 查询任务状态
func (m *Manager) Status(jobID uuid.UUID) (*JobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, apperrors.JobNotFound(jobID.String())
	}

	info := j.info()
	return &info, nil
}

// info 构造状态快照，调用方持有锁
func (j *job) info() JobInfo {
	info := JobInfo{
		ID:          j.id,
		ScheduleID:  j.scheduleID,
		Status:      j.status,
		SubmittedAt: j.submitted,
		StartedAt:   j.started,
		FinishedAt:  j.finished,
	}
	if j.search != nil {
		info.SearchState = j.search.State()
	}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	return info
}

// ActiveJob 返回排班计划当前的活动任务
func (m *Manager) ActiveJob(scheduleID uuid.UUID) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[scheduleID]
	return id, ok
}

// prune 清理超过保留时长的终止任务，调用方持有锁
func (m *Manager) prune(now time.Time) {
	for id, j := range m.jobs {
		if j.status.Terminal() && now.Sub(j.finished) > m.cfg.Retention {
			delete(m.jobs, id)
		}
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case j := <-m.queue:
			m.run(j)
		}
	}
}

// run 在工作协程中执行一个任务
func (m *Manager) run(j *job) {
	search, err := m.engine.NewSearch(j.snapshot)
	if err != nil {
		m.finish(j, nil, err)
		return
	}

	m.mu.Lock()
	j.status = JobRunning
	j.started = time.Now()
	j.search = search
	m.mu.Unlock()
	m.observer.JobStarted()

	result, err := m.execute(j, search)
	m.finish(j, result, err)
}

// execute 执行搜索，工作协程中的 panic 转为 SOLVER_FAILURE
func (m *Manager) execute(j *job, search *optimizer.Search) (result *SolveResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = apperrors.SolverFailure(fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()
	res, err := search.Run(j.ctx)
	if err != nil {
		return nil, apperrors.SolverFailure(err)
	}

	snap := j.snapshot
	filled := 0
	for _, e := range res.Best.Employees {
		if e != planning.Unassigned {
			filled++
		}
	}
	st := &Statistics{
		TotalSlots:    snap.NumSlots(),
		FilledSlots:   filled,
		Iterations:    res.Iterations,
		AcceptedMoves: res.AcceptedMoves,
		Improvements:  res.Improvements,
		InitialScore:  res.Initial,
		Reason:        res.Reason,
	}
	if st.TotalSlots > 0 {
		st.FillRate = float64(filled) / float64(st.TotalSlots)
	}

	explain := m.engine.Constraints().Explain(constraint.NewContext(snap, res.Best.Employees))
	assignments := snap.ToAssignments(res.Best.Employees)

	return &SolveResult{
		JobID:            j.id,
		ScheduleID:       j.scheduleID,
		Assignments:      assignments,
		Score:            res.Best.Score,
		Feasible:         res.Best.Feasible,
		Cancelled:        res.Cancelled,
		Statistics:       st,
		ConstraintResult: explain,
		Report:           stats.Analyze(snap.Shifts, snap.Employees, assignments),
		Duration:         time.Since(start),
	}, nil
}

// finish 写入终止状态，通知观察者后关闭 done 发布结果
func (m *Manager) finish(j *job, result *SolveResult, err error) {
	m.mu.Lock()
	switch {
	case err != nil && errors.Is(err, errShutdown):
		j.status = JobCancelled
		err = apperrors.Wrap(err, apperrors.CodeSolverFailure, "求解任务未执行")
	case err != nil:
		j.status = JobFailed
		if !isAppError(err) {
			err = apperrors.SolverFailure(err)
		}
	case result != nil && result.Cancelled:
		j.status = JobCancelled
	default:
		j.status = JobCompleted
	}
	j.result = result
	j.err = err
	j.finished = time.Now()
	if m.active[j.scheduleID] == j.id {
		delete(m.active, j.scheduleID)
	}
	info := j.info()
	j.cancel()
	m.mu.Unlock()

	duration := info.FinishedAt.Sub(info.SubmittedAt)
	m.observer.JobFinished(info, result)
	m.logger.JobFinished(j.id.String(), j.scheduleID.String(), string(info.Status), duration, err)
	close(j.done)
}

func isAppError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}
