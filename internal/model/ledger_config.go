package model

import (
	"time"
)

// LedgerConfig 台账配置单例：initialize 写入的验证人与结算资产。
// 该行存在即表示台账已完成初始化
type LedgerConfig struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	VerifierAddress string `json:"verifier_address" gorm:"not null"`
	AssetAddress    string `json:"asset_address" gorm:"not null"`
}

// TableName 自定义表名
func (LedgerConfig) TableName() string {
	return "ledger_config"
}
