package model

import (
	"time"
)

// Investment 投资记录，按 (project_id, investor_address) 累计，
// 作为退款分配的依据，创建后永不删除
type Investment struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId       int64  `json:"project_id" gorm:"not null;uniqueIndex:idx_project_investor"`
	InvestorAddress string `json:"investor_address" gorm:"not null;uniqueIndex:idx_project_investor"`

	// 该投资人对该项目的累计投资额
	Amount int64 `json:"amount" gorm:"not null"`
}

// TableName 自定义表名
func (Investment) TableName() string {
	return "investment"
}
