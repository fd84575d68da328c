// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ConstraintCategory 约束类别
type ConstraintCategory string

const (
	ConstraintHard ConstraintCategory = "hard" // 硬约束（必须满足）
	ConstraintSoft ConstraintCategory = "soft" // 软约束（尽量满足）
)

// Role 请求者角色
type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id" yaml:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" yaml:"-"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at" yaml:"-"`
	DeletedAt *time.Time `json:"-" db:"deleted_at" yaml:"-"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TimeRange 时间范围（闭区间）
type TimeRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Hours 返回时长（小时）
func (tr TimeRange) Hours() float64 {
	return tr.Duration().Hours()
}

// String 返回区间的可读形式
func (tr TimeRange) String() string {
	return tr.Start.Format(time.RFC3339) + "~" + tr.End.Format(time.RFC3339)
}

// Requester 发起请求的用户
// 经理按本人ID查询，员工按所属经理ID查询，由外部数据层解析为 OwnerID
type Requester struct {
	UserID  uuid.UUID `json:"user_id"`
	Role    Role      `json:"role"`
	OwnerID uuid.UUID `json:"owner_id"`
}

// Owner 返回用于数据范围限定的所有者ID
func (r Requester) Owner() uuid.UUID {
	if r.OwnerID != uuid.Nil {
		return r.OwnerID
	}
	return r.UserID
}
