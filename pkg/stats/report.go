package stats

import "github.com/paiban/shiftplan/pkg/model"

// Report 排班方案报告
type Report struct {
	Coverage *CoverageMetrics `json:"coverage"`
	Fairness *FairnessMetrics `json:"fairness"`
}

// Analyze 生成覆盖率与公平性报告
func Analyze(shifts []*model.ShiftSlot, employees []*model.EmployeeCandidate, assignments []*model.Assignment) *Report {
	return &Report{
		Coverage: AnalyzeCoverage(shifts, assignments),
		Fairness: NewFairnessAnalyzer().Analyze(employees, assignments),
	}
}
