package model

import (
	"time"
)

// ReleaseRecord 放款记录：每个验证通过的里程碑对应且仅对应一条，
// 记录托管资金向项目方的释放
type ReleaseRecord struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId    int64  `json:"project_id" gorm:"not null;uniqueIndex:idx_project_release"`
	MilestoneIdx int    `json:"milestone_idx" gorm:"not null;uniqueIndex:idx_project_release"`
	OwnerAddress string `json:"owner_address" gorm:"not null"`
	Amount       int64  `json:"amount" gorm:"not null"`
	TxHash       string `json:"tx_hash"`
}

// TableName 自定义表名
func (ReleaseRecord) TableName() string {
	return "release_record"
}
