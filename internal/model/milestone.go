package model

import (
	"time"
)

// Milestone 项目里程碑，按 (project_id, idx) 唯一定位
type Milestone struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64 `json:"project_id" gorm:"not null;uniqueIndex:idx_project_milestone"`
	Idx       int   `json:"idx" gorm:"not null;uniqueIndex:idx_project_milestone"`

	// 该里程碑验证通过后释放的金额
	Amount int64 `json:"amount" gorm:"not null"`

	// 截止时间，过期后不可再提交证据或通过验证
	Deadline time.Time `json:"deadline" gorm:"not null"`

	// 证据哈希（32字节摘要的十六进制），未提交时为空
	EvidenceHash string `json:"evidence_hash"`

	Status     MilestoneStatus `json:"status" gorm:"default:'pending'"`
	VerifiedAt *time.Time      `json:"verified_at"`
}

// MilestoneStatus 里程碑状态
type MilestoneStatus string

const (
	MilestoneStatusPending           MilestoneStatus = "pending"            // 待提交证据
	MilestoneStatusEvidenceSubmitted MilestoneStatus = "evidence_submitted" // 证据已提交
	MilestoneStatusVerified          MilestoneStatus = "verified"           // 验证通过（终态）
	MilestoneStatusRejected          MilestoneStatus = "rejected"           // 验证拒绝（终态）
)

// Terminal 是否处于终态
func (s MilestoneStatus) Terminal() bool {
	return s == MilestoneStatusVerified || s == MilestoneStatusRejected
}

// TableName 自定义表名
func (Milestone) TableName() string {
	return "milestone"
}
