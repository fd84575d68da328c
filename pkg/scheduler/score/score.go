// Package score 定义硬/软两级评分
package score

import "fmt"

// Score 两级评分，硬分为负的硬约束违反数，软分为奖励与惩罚的净值
type Score struct {
	Hard int `json:"hard_score"`
	Soft int `json:"soft_score"`
}

// Zero 零分
var Zero = Score{}

// Of 构造评分
func Of(hard, soft int) Score {
	return Score{Hard: hard, Soft: soft}
}

// Add 相加
func (s Score) Add(o Score) Score {
	return Score{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft}
}

// Sub 相减
func (s Score) Sub(o Score) Score {
	return Score{Hard: s.Hard - o.Hard, Soft: s.Soft - o.Soft}
}

// Negate 取反
func (s Score) Negate() Score {
	return Score{Hard: -s.Hard, Soft: -s.Soft}
}

// IsFeasible 硬分为0时方案可行
func (s Score) IsFeasible() bool {
	return s.Hard == 0
}

// Compare 按字典序比较：先可行性，再硬分，最后软分
// 返回 -1/0/1
func (s Score) Compare(o Score) int {
	if s.IsFeasible() != o.IsFeasible() {
		if s.IsFeasible() {
			return 1
		}
		return -1
	}
	switch {
	case s.Hard < o.Hard:
		return -1
	case s.Hard > o.Hard:
		return 1
	case s.Soft < o.Soft:
		return -1
	case s.Soft > o.Soft:
		return 1
	default:
		return 0
	}
}

// BetterThan 严格更优
func (s Score) BetterThan(o Score) bool {
	return s.Compare(o) > 0
}

// WorseThan 严格更差
func (s Score) WorseThan(o Score) bool {
	return s.Compare(o) < 0
}

// String 返回 "0hard/2soft" 形式
func (s Score) String() string {
	return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft)
}
