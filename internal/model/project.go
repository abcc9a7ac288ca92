package model

import (
	"time"
)

// Project 里程碑众筹项目
type Project struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 创建者信息
	OwnerAddress string `json:"owner_address" gorm:"not null;index"`

	// 筹款信息（最小单位整数）
	GoalAmount   int64 `json:"goal_amount" gorm:"not null"`
	RaisedAmount int64 `json:"raised_amount" gorm:"default:0"`

	// 状态
	Status ProjectStatus `json:"status" gorm:"default:'open'"`

	// 关联
	Milestones []Milestone `json:"milestones,omitempty" gorm:"foreignKey:ProjectId"`
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusOpen      ProjectStatus = "open"      // 募集中
	ProjectStatusFunded    ProjectStatus = "funded"    // 已满额
	ProjectStatusCompleted ProjectStatus = "completed" // 全部里程碑已验证
	ProjectStatusCancelled ProjectStatus = "cancelled" // 已取消（终态）
)

// TableName 自定义表名
func (Project) TableName() string {
	return "project"
}
