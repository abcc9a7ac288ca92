package model

import (
	"time"
)

// Event 审计事件，与状态变更在同一事务内追加写入
type Event struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProjectId int64  `json:"project_id" gorm:"index"`
	EventType string `json:"event_type" gorm:"not null"`
	Data      string `json:"data" gorm:"type:text"`
}

// 事件类型
const (
	EventProjectCreated    = "project_created"
	EventProjectFunded     = "project_funded"
	EventProjectCompleted  = "project_completed"
	EventProjectCancelled  = "project_cancelled"
	EventInvested          = "invested"
	EventEvidenceSubmitted = "evidence_submitted"
	EventMilestoneVerified = "milestone_verified"
	EventMilestoneRejected = "milestone_rejected"
	EventRefundEarmarked   = "refund_earmarked"
	EventRefundPaid        = "refund_paid"
)

// TableName 自定义表名
func (Event) TableName() string {
	return "event"
}
