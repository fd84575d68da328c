package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftplan/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	WorkloadGini        float64        `json:"workload_gini"` // 0=完全公平, 1=完全不公平
	WorkloadStdDev      float64        `json:"workload_std_dev"`
	AvgHoursPerEmployee float64        `json:"avg_hours_per_employee"`
	MaxHours            float64        `json:"max_hours"`
	MinHours            float64        `json:"min_hours"`
	HoursRange          float64        `json:"hours_range"`
	NightShiftGini      float64        `json:"night_shift_gini"`
	EmployeeStats       []EmployeeStat `json:"employee_stats"`
	OverallScore        float64        `json:"overall_score"` // 0-100
}

// EmployeeStat 员工统计
type EmployeeStat struct {
	EmployeeID   uuid.UUID `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	TotalHours   float64   `json:"total_hours"`
	ShiftCount   int       `json:"shift_count"`
	NightShifts  int       `json:"night_shifts"`
	Deviation    float64   `json:"deviation"` // 与平均工时的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	nightShiftStart int // 夜班开始时间（小时）
	nightShiftEnd   int // 夜班结束时间（小时）
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{
		nightShiftStart: 22,
		nightShiftEnd:   6,
	}
}

// Analyze 分析工时在候选员工之间的分布
// 没有分配的候选员工按0工时计入
func (f *FairnessAnalyzer) Analyze(employees []*model.EmployeeCandidate, assignments []*model.Assignment) *FairnessMetrics {
	if len(employees) == 0 {
		return &FairnessMetrics{OverallScore: 100}
	}

	stats := f.employeeStats(employees, assignments)

	hours := make([]float64, len(stats))
	nights := make([]float64, len(stats))
	for i, s := range stats {
		hours[i] = s.TotalHours
		nights[i] = float64(s.NightShifts)
	}

	avg := mean(hours)
	stdDev := math.Sqrt(variance(hours, avg))
	maxHours, minHours := valueRange(hours)
	for i := range stats {
		if avg > 0 {
			stats[i].Deviation = (stats[i].TotalHours - avg) / avg * 100
		}
	}

	workloadGini := gini(hours)
	nightGini := gini(nights)

	return &FairnessMetrics{
		WorkloadGini:        workloadGini,
		WorkloadStdDev:      stdDev,
		AvgHoursPerEmployee: avg,
		MaxHours:            maxHours,
		MinHours:            minHours,
		HoursRange:          maxHours - minHours,
		NightShiftGini:      nightGini,
		EmployeeStats:       stats,
		OverallScore:        overallScore(workloadGini, nightGini, stdDev, avg),
	}
}

func (f *FairnessAnalyzer) employeeStats(employees []*model.EmployeeCandidate, assignments []*model.Assignment) []EmployeeStat {
	byID := make(map[uuid.UUID]*EmployeeStat, len(employees))
	stats := make([]EmployeeStat, len(employees))
	for i, e := range employees {
		stats[i] = EmployeeStat{EmployeeID: e.ID, EmployeeName: e.Name}
		byID[e.ID] = &stats[i]
	}

	for _, a := range assignments {
		s, ok := byID[a.EmployeeID]
		if !ok {
			continue
		}
		s.TotalHours += a.WorkingHours()
		s.ShiftCount++
		if f.isNightShift(a) {
			s.NightShifts++
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalHours > stats[j].TotalHours
	})
	return stats
}

// isNightShift 开始时间在22点后或结束时间在6点前
func (f *FairnessAnalyzer) isNightShift(a *model.Assignment) bool {
	return a.Start.Hour() >= f.nightShiftStart || a.End.Hour() < f.nightShiftEnd
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g /= float64(n) * sum
	return math.Max(0, math.Min(1, g))
}

// overallScore 综合评分，工时基尼系数权重最高
func overallScore(workloadGini, nightGini, stdDev, avgHours float64) float64 {
	const (
		workloadWeight = 0.6
		nightWeight    = 0.25
		stdDevWeight   = 0.15
	)

	cvScore := 100.0
	if avgHours > 0 {
		cvScore = math.Max(0, 100-stdDev/avgHours*200)
	}

	score := workloadWeight*(1-workloadGini)*100 +
		nightWeight*(1-nightGini)*100 +
		stdDevWeight*cvScore
	return math.Max(0, math.Min(100, score))
}
