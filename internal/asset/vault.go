package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Vault 进程内资产账本，用于 local 模式和测试。
// 账户余额为最小单位整数，转账即刻生效
type Vault struct {
	mu       sync.Mutex
	balances map[string]int64
	seq      uint64
}

// NewVault 创建进程内资产账本
func NewVault() *Vault {
	return &Vault{balances: make(map[string]int64)}
}

// Credit 为账户充值（测试与本地引导用）
func (v *Vault) Credit(addr string, amount int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[normalize(addr)] += amount
}

// Balance 查询账户余额
func (v *Vault) Balance(addr string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[normalize(addr)]
}

// Transfer 实现 Transferor
func (v *Vault) Transfer(ctx context.Context, from, to string, amount int64) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fromKey, toKey := normalize(from), normalize(to)
	if v.balances[fromKey] < amount {
		return "", fmt.Errorf("transfer of %d from %s: %w", amount, from, ErrInsufficientBalance)
	}

	v.balances[fromKey] -= amount
	v.balances[toKey] += amount

	v.seq++
	hash := crypto.Keccak256([]byte(fmt.Sprintf("%s:%s:%d:%d", fromKey, toKey, amount, v.seq)))
	return common.BytesToHash(hash).Hex(), nil
}

func normalize(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}
