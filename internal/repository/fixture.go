package repository

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/paiban/shiftplan/pkg/model"
	intervals "github.com/paiban/shiftplan/pkg/validator"
)

// Fixture 规划数据文件，供命令行离线求解
type Fixture struct {
	Schedules      []ScheduleRecord     `yaml:"schedules" validate:"required,min=1,dive"`
	Employees      []EmployeeRecord     `yaml:"employees" validate:"dive"`
	Teams          []TeamRecord         `yaml:"teams" validate:"dive"`
	Shifts         []ShiftRecord        `yaml:"shifts" validate:"dive"`
	Availabilities []AvailabilityRecord `yaml:"availabilities" validate:"dive"`
	Assignments    []AssignmentRecord   `yaml:"assignments" validate:"dive"`
}

// ScheduleRecord 排班计划记录
type ScheduleRecord struct {
	ID                   uuid.UUID `yaml:"id" validate:"required"`
	OwnerID              uuid.UUID `yaml:"owner_id" validate:"required"`
	TeamID               uuid.UUID `yaml:"team_id" validate:"required"`
	Name                 string    `yaml:"name"`
	Start                time.Time `yaml:"start"`
	End                  time.Time `yaml:"end"`
	MaxHoursPerEmployee  int       `yaml:"max_hours_per_employee" validate:"min=0"`
	MaxShiftsPerEmployee int       `yaml:"max_shifts_per_employee" validate:"min=0"`
	MaxHoursPerShift     int       `yaml:"max_hours_per_shift" validate:"min=0"`
}

// EmployeeRecord 员工记录
type EmployeeRecord struct {
	ID   uuid.UUID `yaml:"id" validate:"required"`
	Name string    `yaml:"name" validate:"required"`
}

// TeamRecord 团队记录
type TeamRecord struct {
	ID      uuid.UUID   `yaml:"id" validate:"required"`
	Members []uuid.UUID `yaml:"members" validate:"dive,required"`
}

// ShiftRecord 班次记录
type ShiftRecord struct {
	ID                uuid.UUID `yaml:"id" validate:"required"`
	ScheduleID        uuid.UUID `yaml:"schedule_id" validate:"required"`
	Name              string    `yaml:"name"`
	Start             time.Time `yaml:"start" validate:"required"`
	End               time.Time `yaml:"end" validate:"required"`
	RequiredEmployees int       `yaml:"required_employees" validate:"min=0"`
}

// AvailabilityRecord 员工可用时间记录
type AvailabilityRecord struct {
	EmployeeID       uuid.UUID `yaml:"employee_id" validate:"required"`
	ShiftID          uuid.UUID `yaml:"shift_id" validate:"required"`
	Start            time.Time `yaml:"start" validate:"required"`
	End              time.Time `yaml:"end" validate:"required"`
	MaxHoursPerShift int       `yaml:"max_hours_per_shift" validate:"min=0"`
}

// AssignmentRecord 已有分配记录
type AssignmentRecord struct {
	EmployeeID uuid.UUID `yaml:"employee_id" validate:"required"`
	ShiftID    uuid.UUID `yaml:"shift_id" validate:"required"`
	Start      time.Time `yaml:"start" validate:"required"`
	End        time.Time `yaml:"end" validate:"required"`
}

var validate = validator.New()

// LoadFixtureFile 从文件加载规划数据
func LoadFixtureFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture 解析并校验规划数据，写入新的内存存储
func LoadFixture(r io.Reader) (*MemoryStore, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("解析数据文件失败: %w", err)
	}
	if err := validate.Struct(&fx); err != nil {
		return nil, fmt.Errorf("数据文件校验失败: %w", err)
	}
	return fx.Store()
}

// Store 把记录转换为内存存储，同时校验引用和时间区间
func (fx *Fixture) Store() (*MemoryStore, error) {
	store := NewMemoryStore()

	for _, s := range fx.Schedules {
		if !s.Start.IsZero() || !s.End.IsZero() {
			if err := intervals.ValidateInterval(s.Start, s.End); err != nil {
				return nil, fmt.Errorf("排班计划 %s: %w", s.ID, err)
			}
		}
		store.AddSchedule(&model.ScheduleWindow{
			BaseModel:            model.BaseModel{ID: s.ID},
			OwnerID:              s.OwnerID,
			TeamID:               s.TeamID,
			Name:                 s.Name,
			Start:                s.Start,
			End:                  s.End,
			MaxHoursPerEmployee:  s.MaxHoursPerEmployee,
			MaxShiftsPerEmployee: s.MaxShiftsPerEmployee,
			MaxHoursPerShift:     s.MaxHoursPerShift,
		})
	}

	employees := make(map[uuid.UUID]*model.EmployeeCandidate, len(fx.Employees))
	for _, e := range fx.Employees {
		employees[e.ID] = &model.EmployeeCandidate{ID: e.ID, Name: e.Name}
	}
	for _, t := range fx.Teams {
		for _, id := range t.Members {
			e, ok := employees[id]
			if !ok {
				return nil, fmt.Errorf("团队 %s 的成员 %s 不存在", t.ID, id)
			}
			store.AddTeamMember(t.ID, e)
		}
	}

	shifts := make(map[uuid.UUID]*model.ShiftSlot, len(fx.Shifts))
	for _, s := range fx.Shifts {
		if _, ok := store.schedules[s.ScheduleID]; !ok {
			return nil, fmt.Errorf("班次 %s 的排班计划 %s 不存在", s.ID, s.ScheduleID)
		}
		if err := intervals.ValidateInterval(s.Start, s.End); err != nil {
			return nil, fmt.Errorf("班次 %s: %w", s.ID, err)
		}
		shift := &model.ShiftSlot{
			BaseModel:         model.BaseModel{ID: s.ID},
			ScheduleID:        s.ScheduleID,
			Name:              s.Name,
			Start:             s.Start,
			End:               s.End,
			RequiredEmployees: s.RequiredEmployees,
		}
		shifts[s.ID] = shift
		store.AddShift(shift)
	}

	for i, a := range fx.Availabilities {
		shift, ok := shifts[a.ShiftID]
		if !ok {
			return nil, fmt.Errorf("可用时间[%d] 的班次 %s 不存在", i, a.ShiftID)
		}
		if err := intervals.ValidateInterval(a.Start, a.End); err != nil {
			return nil, fmt.Errorf("可用时间[%d]: %w", i, err)
		}
		avail := &model.EmployeeAvailability{
			BaseModel:        model.NewBaseModel(),
			EmployeeID:       a.EmployeeID,
			ShiftID:          a.ShiftID,
			Start:            a.Start,
			End:              a.End,
			MaxHoursPerShift: a.MaxHoursPerShift,
		}
		if !intervals.IsSubsetOf(avail.Range(), shift.Range()) {
			return nil, fmt.Errorf("可用时间[%d] %s 超出班次范围 %s", i, avail.Range(), shift.Range())
		}
		store.AddAvailability(avail)
	}

	for i, a := range fx.Assignments {
		shift, ok := shifts[a.ShiftID]
		if !ok {
			return nil, fmt.Errorf("分配[%d] 的班次 %s 不存在", i, a.ShiftID)
		}
		store.assignments[shift.ScheduleID] = append(store.assignments[shift.ScheduleID], &model.Assignment{
			BaseModel:  model.NewBaseModel(),
			ScheduleID: shift.ScheduleID,
			EmployeeID: a.EmployeeID,
			ShiftID:    a.ShiftID,
			Start:      a.Start,
			End:        a.End,
		})
	}

	return store, nil
}
