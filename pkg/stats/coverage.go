// Package stats 提供排班方案的覆盖率和公平性分析
package stats

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftplan/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalShifts     int             `json:"total_shifts"`
	CoveredShifts   int             `json:"covered_shifts"` // 人数满足需求的班次
	RequiredSlots   int             `json:"required_slots"`
	FilledSlots     int             `json:"filled_slots"`
	OverallCoverage float64         `json:"overall_coverage"` // 槽位覆盖率 (%)
	DailyCoverage   []DayCoverage   `json:"daily_coverage"`
	Understaffed    []ShiftCoverage `json:"understaffed,omitempty"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	Required     int     `json:"required"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
	TotalHours   float64 `json:"total_hours"`
}

// ShiftCoverage 单个班次的人数情况
type ShiftCoverage struct {
	ShiftID  uuid.UUID `json:"shift_id"`
	Name     string    `json:"name,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Required int       `json:"required"`
	Assigned int       `json:"assigned"`
	Shortage int       `json:"shortage"`
}

// AnalyzeCoverage 按班次统计需求人数与已分配人数
// 超出需求的分配不计入覆盖
func AnalyzeCoverage(shifts []*model.ShiftSlot, assignments []*model.Assignment) *CoverageMetrics {
	m := &CoverageMetrics{TotalShifts: len(shifts)}
	if len(shifts) == 0 {
		return m
	}

	assigned := make(map[uuid.UUID]int, len(shifts))
	hours := make(map[uuid.UUID]float64, len(shifts))
	for _, a := range assignments {
		assigned[a.ShiftID]++
		hours[a.ShiftID] += a.WorkingHours()
	}

	days := make(map[string]*DayCoverage)
	for _, s := range shifts {
		filled := min(assigned[s.ID], s.RequiredEmployees)
		m.RequiredSlots += s.RequiredEmployees
		m.FilledSlots += filled
		if filled >= s.RequiredEmployees {
			m.CoveredShifts++
		} else {
			m.Understaffed = append(m.Understaffed, ShiftCoverage{
				ShiftID:  s.ID,
				Name:     s.Name,
				Start:    s.Start,
				End:      s.End,
				Required: s.RequiredEmployees,
				Assigned: assigned[s.ID],
				Shortage: s.RequiredEmployees - filled,
			})
		}

		date := s.Start.Format("2006-01-02")
		day, ok := days[date]
		if !ok {
			day = &DayCoverage{Date: date}
			days[date] = day
		}
		day.Required += s.RequiredEmployees
		day.Assigned += filled
		day.TotalHours += hours[s.ID]
	}

	m.OverallCoverage = percent(m.FilledSlots, m.RequiredSlots)

	m.DailyCoverage = make([]DayCoverage, 0, len(days))
	for _, day := range days {
		day.CoverageRate = percent(day.Assigned, day.Required)
		m.DailyCoverage = append(m.DailyCoverage, *day)
	}
	sort.Slice(m.DailyCoverage, func(i, j int) bool {
		return m.DailyCoverage[i].Date < m.DailyCoverage[j].Date
	})
	sort.SliceStable(m.Understaffed, func(i, j int) bool {
		return m.Understaffed[i].Start.Before(m.Understaffed[j].Start)
	})

	return m
}

// percent 没有需求时视为全覆盖
func percent(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(n) / float64(total) * 100
}
