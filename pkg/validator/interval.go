// Package validator 提供排班验证功能
package validator

import (
	"time"

	apperrors "github.com/paiban/shiftplan/pkg/errors"
	"github.com/paiban/shiftplan/pkg/model"
)

// ValidateInterval 校验时间区间，开始时间必须严格早于结束时间
func ValidateInterval(start, end time.Time) error {
	if start.After(end) {
		return apperrors.InvalidDateRange(start, end, "开始时间晚于结束时间")
	}
	if start.Equal(end) {
		return apperrors.InvalidDateRange(start, end, "开始时间等于结束时间")
	}
	return nil
}

// ValidRange 校验 TimeRange
func ValidRange(r model.TimeRange) error {
	return ValidateInterval(r.Start, r.End)
}

// IntervalsOverlap 判断两个闭区间是否重叠，端点相接也视为重叠
func IntervalsOverlap(a, b model.TimeRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// IsSubsetOf 判断 inner 是否被 outer 包含（闭区间）
func IsSubsetOf(inner, outer model.TimeRange) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// AnyOverlap 返回第一对重叠区间的下标，不存在时 ok 为 false
func AnyOverlap(ranges []model.TimeRange) (i, j int, ok bool) {
	for i = 0; i < len(ranges); i++ {
		for j = i + 1; j < len(ranges); j++ {
			if IntervalsOverlap(ranges[i], ranges[j]) {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}
