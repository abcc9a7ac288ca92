package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"

	"github.com/starfund/mes/internal/asset"
	"github.com/starfund/mes/internal/config"
	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/model"
)

// RefundPayoutJob 退款打款任务：把待处理的退款记录经资产协作方
// 付给投资人。打款失败的记录保持可重试，下一轮继续处理
type RefundPayoutJob struct {
	db         *gorm.DB
	transferor asset.Transferor
	config     *config.Config
}

// NewRefundPayoutJob 创建退款打款任务
func NewRefundPayoutJob(db *gorm.DB, transferor asset.Transferor, cfg *config.Config) *RefundPayoutJob {
	return &RefundPayoutJob{
		db:         db,
		transferor: transferor,
		config:     cfg,
	}
}

// GetName 获取任务名称
func (j *RefundPayoutJob) GetName() string {
	return "refund_payout_worker"
}

// GetSchedule 获取调度配置
func (j *RefundPayoutJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *RefundPayoutJob) Execute() {
	logger.Info("Starting refund payout task")

	var records []model.RefundRecord
	err := j.db.Where("status IN ?", []model.RefundStatus{
		model.RefundStatusPending,
		model.RefundStatusFailed,
	}).Order("id ASC").Find(&records).Error
	if err != nil {
		logger.Error("Failed to fetch pending refund records: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	poolSize := j.config.Task.RefundPool
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		logger.Error("Failed to create payout pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range records {
		record := records[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			j.processPayout(record)
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit payout for record %d: %v", record.Id, err)
		}
	}
	wg.Wait()

	logger.Info("Refund payout task completed. Processed %d records", len(records))
}

// processPayout 处理单条退款打款
func (j *RefundPayoutJob) processPayout(record model.RefundRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	txHash, err := j.transferor.Transfer(ctx,
		j.config.Escrow.EscrowAddress, record.InvestorAddress, record.Amount)
	if err != nil {
		logger.Error("Refund payout failed for record %d: %v", record.Id, err)
		j.updateStatus(record.Id, model.RefundStatusFailed, "")
		return
	}

	j.updateStatus(record.Id, model.RefundStatusSuccess, txHash)

	event := model.Event{
		ProjectId: record.ProjectId,
		EventType: model.EventRefundPaid,
		Data: fmt.Sprintf(`{"record_id":%d,"investor":%q,"amount":%d,"tx_hash":%q}`,
			record.Id, record.InvestorAddress, record.Amount, txHash),
	}
	if err := j.db.Create(&event).Error; err != nil {
		logger.Warn("Failed to record refund_paid event for record %d: %v", record.Id, err)
	}

	logger.Info("Refunded record %d, amount %d to %s, tx %s",
		record.Id, record.Amount, record.InvestorAddress, txHash)
}

// updateStatus 更新退款记录状态
func (j *RefundPayoutJob) updateStatus(recordId int64, status model.RefundStatus, txHash string) {
	updates := map[string]interface{}{
		"status": status,
	}
	if txHash != "" {
		updates["tx_hash"] = txHash
	}

	err := j.db.Model(&model.RefundRecord{}).Where("id = ?", recordId).Updates(updates).Error
	if err != nil {
		logger.Error("Failed to update refund record %d status: %v", recordId, err)
	}
}
