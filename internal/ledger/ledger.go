package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/starfund/mes/internal/asset"
	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/model"
)

// Policy 托管策略
type Policy struct {
	// 里程碑被拒绝时是否取消整个项目并退还全部未释放资金
	RejectCancelsProject bool
	// 验证前是否允许重复提交证据（后写覆盖先写）
	AllowEvidenceResubmit bool
}

// EscrowLedger 托管台账核心：持有全部项目、里程碑与投资记录，
// 实现所有状态迁移与不变量检查。每个操作串行执行，先完成全部
// 前置检查再落任何写入，失败时状态完全不变
type EscrowLedger struct {
	mu            sync.Mutex
	db            *gorm.DB
	transferor    asset.Transferor
	escrowAddress string
	policy        Policy
	now           func() time.Time
}

// New 创建托管台账
func New(db *gorm.DB, transferor asset.Transferor, escrowAddress string, policy Policy) *EscrowLedger {
	return &EscrowLedger{
		db:            db,
		transferor:    transferor,
		escrowAddress: escrowAddress,
		policy:        policy,
		now:           time.Now,
	}
}

// Initialize 写入验证人与结算资产配置，每个部署只允许执行一次
func (l *EscrowLedger) Initialize(verifier, assetAddr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.LedgerConfig{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInitialized
		}

		cfg := model.LedgerConfig{
			VerifierAddress: verifier,
			AssetAddress:    assetAddr,
		}
		return tx.Create(&cfg).Error
	})
	if err != nil {
		return err
	}

	logger.Info("Ledger initialized with verifier %s, asset %s", verifier, assetAddr)
	return nil
}

// authorize 角色校验：所有写操作的统一前置条件
func authorize(required, caller string) error {
	if caller == "" || caller != required {
		return ErrUnauthorized
	}
	return nil
}

// loadConfig 读取台账配置，未初始化时报错
func loadConfig(tx *gorm.DB) (*model.LedgerConfig, error) {
	var cfg model.LedgerConfig
	if err := tx.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	return &cfg, nil
}

// loadProject 读取项目
func loadProject(tx *gorm.DB, projectId int64) (*model.Project, error) {
	var project model.Project
	if err := tx.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// loadMilestone 按 (project_id, idx) 读取里程碑
func loadMilestone(tx *gorm.DB, projectId int64, idx int) (*model.Milestone, error) {
	var milestone model.Milestone
	err := tx.Where("project_id = ? AND idx = ?", projectId, idx).First(&milestone).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	return &milestone, nil
}

// recordEvent 在当前事务内追加审计事件
func recordEvent(tx *gorm.DB, projectId int64, eventType string, data map[string]interface{}) error {
	payload := ""
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		payload = string(raw)
	}

	event := model.Event{
		ProjectId: projectId,
		EventType: eventType,
		Data:      payload,
	}
	return tx.Create(&event).Error
}
