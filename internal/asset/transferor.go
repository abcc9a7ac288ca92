package asset

import (
	"context"
	"errors"
)

// ErrInsufficientBalance 转出方余额不足
var ErrInsufficientBalance = errors.New("insufficient balance")

// Transferor 资金划转协作方：在投资人、托管账户与项目方之间
// 移动结算资产。转账失败时台账状态不得发生任何变更
type Transferor interface {
	// Transfer 从 from 向 to 划转 amount（最小单位），返回交易哈希
	Transfer(ctx context.Context, from, to string, amount int64) (string, error)
}
