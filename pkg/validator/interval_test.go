package validator

import (
	"math/rand"
	"testing"
	"time"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
)

var day = time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

func at(h, m, s int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

func rng(sh, sm, eh, em int) model.TimeRange {
	return model.TimeRange{Start: at(sh, sm, 0), End: at(eh, em, 0)}
}

func TestValidateInterval(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"正常区间", at(8, 0, 0), at(16, 0, 0), false},
		{"一秒区间", at(8, 0, 0), at(8, 0, 1), false},
		{"开始晚于结束", at(17, 0, 0), at(16, 0, 0), true},
		{"零长度区间", at(16, 0, 0), at(16, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterval(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateInterval() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.Is(err, apperrors.CodeInvalidDateRange) {
				t.Errorf("Expected INVALID_DATE_RANGE, got %s", apperrors.GetCode(err))
			}
		})
	}
}

func TestValidateInterval_Property(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		s := day.Add(time.Duration(r.Intn(1440)) * time.Minute)
		e := day.Add(time.Duration(r.Intn(1440)) * time.Minute)
		err := ValidateInterval(s, e)
		if s.Before(e) && err != nil {
			t.Fatalf("%s < %s should be valid: %v", s, e, err)
		}
		if !s.Before(e) && err == nil {
			t.Fatalf("%s >= %s should be rejected", s, e)
		}
	}
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b model.TimeRange
		want bool
	}{
		{"完全分离", rng(8, 0, 12, 0), rng(13, 0, 17, 0), false},
		{"端点相接", rng(8, 0, 16, 0), rng(16, 0, 20, 0), true},
		{"部分重叠", rng(8, 0, 16, 0), rng(15, 59, 17, 0), true},
		{"包含关系", rng(8, 0, 20, 0), rng(10, 0, 12, 0), true},
		{"相同区间", rng(8, 0, 16, 0), rng(8, 0, 16, 0), true},
		{"相隔一分钟", rng(8, 0, 16, 0), rng(16, 1, 20, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntervalsOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("IntervalsOverlap(a, b) = %v, expected %v", got, tt.want)
			}
			if got := IntervalsOverlap(tt.b, tt.a); got != tt.want {
				t.Errorf("IntervalsOverlap(b, a) = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestIntervalsOverlap_Symmetric(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	random := func() model.TimeRange {
		s := day.Add(time.Duration(r.Intn(48)) * 30 * time.Minute)
		return model.TimeRange{Start: s, End: s.Add(time.Duration(1+r.Intn(16)) * 30 * time.Minute)}
	}
	for i := 0; i < 1000; i++ {
		a, b := random(), random()
		if IntervalsOverlap(a, b) != IntervalsOverlap(b, a) {
			t.Fatalf("overlap not symmetric for %s and %s", a, b)
		}
	}
}

func TestIsSubsetOf(t *testing.T) {
	shift := rng(8, 0, 16, 0)

	tests := []struct {
		name  string
		inner model.TimeRange
		want  bool
	}{
		{"相同区间", rng(8, 0, 16, 0), true},
		{"内部区间", rng(9, 0, 12, 0), true},
		{"提前开始", rng(7, 59, 12, 0), false},
		{"延后结束", rng(9, 0, 16, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubsetOf(tt.inner, shift); got != tt.want {
				t.Errorf("IsSubsetOf() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestAnyOverlap(t *testing.T) {
	ranges := []model.TimeRange{rng(8, 0, 10, 0), rng(11, 0, 12, 0), rng(12, 0, 13, 0)}

	i, j, ok := AnyOverlap(ranges)
	if !ok || i != 1 || j != 2 {
		t.Errorf("AnyOverlap() = (%d, %d, %v), expected (1, 2, true)", i, j, ok)
	}

	if _, _, ok := AnyOverlap(ranges[:2]); ok {
		t.Error("disjoint ranges should not overlap")
	}
}
