package model

import (
	"time"
)

// RefundRecord 退款记录：里程碑被拒绝或项目取消时，按比例为每个投资人
// 预留的待付退款。与 Investment 分开记账，原始投资记录保持不变
type RefundRecord struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId       int64  `json:"project_id" gorm:"not null;index"`
	MilestoneIdx    int    `json:"milestone_idx"`
	InvestorAddress string `json:"investor_address" gorm:"not null"`
	Amount          int64  `json:"amount" gorm:"not null"`

	Status       RefundStatus `json:"status" gorm:"default:'pending';index"`
	RefundReason string       `json:"refund_reason" gorm:"type:text"`
	TxHash       string       `json:"tx_hash"`
}

// RefundStatus 退款状态
type RefundStatus string

const (
	RefundStatusPending RefundStatus = "pending" // 待打款
	RefundStatusSuccess RefundStatus = "success" // 打款成功
	RefundStatusFailed  RefundStatus = "failed"  // 打款失败，等待重试
)

// TableName 自定义表名
func (RefundRecord) TableName() string {
	return "refund_record"
}
