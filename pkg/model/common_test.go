package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAssignment_WorkingHours(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected float64
	}{
		{
			name:     "8小时工作",
			start:    time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC),
			end:      time.Date(2026, 1, 11, 16, 0, 0, 0, time.UTC),
			expected: 8.0,
		},
		{
			name:     "跨天夜班",
			start:    time.Date(2026, 1, 11, 22, 0, 0, 0, time.UTC),
			end:      time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC),
			expected: 8.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Assignment{Start: tt.start, End: tt.end}
			if result := a.WorkingHours(); result != tt.expected {
				t.Errorf("WorkingHours() = %v, expected %v", result, tt.expected)
			}
			if a.Range().Hours() != tt.expected {
				t.Errorf("Range().Hours() = %v, expected %v", a.Range().Hours(), tt.expected)
			}
		})
	}
}

func TestRequester_Owner(t *testing.T) {
	manager := uuid.New()
	employee := uuid.New()

	if got := (Requester{UserID: manager, Role: RoleManager}).Owner(); got != manager {
		t.Errorf("manager Owner() = %v, expected %v", got, manager)
	}
	if got := (Requester{UserID: employee, Role: RoleEmployee, OwnerID: manager}).Owner(); got != manager {
		t.Errorf("employee Owner() = %v, expected %v", got, manager)
	}
}

func TestNewBaseModel(t *testing.T) {
	base := NewBaseModel()

	if base.ID == uuid.Nil {
		t.Error("ID should not be empty")
	}
	if base.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}
