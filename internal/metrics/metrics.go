// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/scheduler/solver"
)

const namespace = "shiftplan"

// SolverMetrics 求解任务指标，实现 solver.Observer
type SolverMetrics struct {
	jobsTotal     *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	activeJobs    prometheus.Gauge
	iterations    prometheus.Counter
	bestHard      prometheus.Gauge
	bestSoft      prometheus.Gauge
	fillRate      prometheus.Gauge
}

var _ solver.Observer = (*SolverMetrics)(nil)

// NewSolverMetrics 创建并注册求解指标，reg 为 nil 时使用默认注册表
func NewSolverMetrics(reg prometheus.Registerer) *SolverMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &SolverMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_jobs_total",
			Help:      "求解任务总数（按终止状态）",
		}, []string{"status"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_jobs_rejected_total",
			Help:      "被拒绝的求解任务提交次数",
		}, []string{"code"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_job_duration_seconds",
			Help:      "求解任务从提交到结束的耗时",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		}, []string{"status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solver_active_jobs",
			Help:      "当前运行中的求解任务数",
		}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_iterations_total",
			Help:      "局部搜索迭代次数",
		}),
		bestHard: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solver_best_hard_score",
			Help:      "最近一次求解的最优硬分",
		}),
		bestSoft: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solver_best_soft_score",
			Help:      "最近一次求解的最优软分",
		}),
		fillRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solver_fill_rate",
			Help:      "最近一次求解的槽位填充率",
		}),
	}

	reg.MustRegister(
		m.jobsTotal,
		m.rejectedTotal,
		m.jobDuration,
		m.activeJobs,
		m.iterations,
		m.bestHard,
		m.bestSoft,
		m.fillRate,
	)
	return m
}

// JobSubmitted 任务入队
func (m *SolverMetrics) JobSubmitted() {}

// JobRejected 提交被拒绝
func (m *SolverMetrics) JobRejected(code apperrors.Code) {
	m.rejectedTotal.WithLabelValues(string(code)).Inc()
}

// JobStarted 任务开始运行
func (m *SolverMetrics) JobStarted() {
	m.activeJobs.Inc()
}

// JobFinished 任务结束
func (m *SolverMetrics) JobFinished(info solver.JobInfo, result *solver.SolveResult) {
	status := string(info.Status)
	m.jobsTotal.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(info.FinishedAt.Sub(info.SubmittedAt).Seconds())

	// 排队中即结束的任务没有计入运行数
	if !info.StartedAt.IsZero() {
		m.activeJobs.Dec()
	}
	if result == nil {
		return
	}
	m.bestHard.Set(float64(result.Score.Hard))
	m.bestSoft.Set(float64(result.Score.Soft))
	if result.Statistics != nil {
		m.iterations.Add(float64(result.Statistics.Iterations))
		m.fillRate.Set(result.Statistics.FillRate)
	}
}

// Handler 返回指标HTTP处理器，gatherer 为 nil 时使用默认注册表
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
