package task

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"github.com/starfund/mes/internal/config"
	"github.com/starfund/mes/internal/ledger"
	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/model"
)

// MilestoneExpiryJob 里程碑逾期巡检：发现截止时间已过且未验证的
// 里程碑，触发台账的逾期退款路径
type MilestoneExpiryJob struct {
	db     *gorm.DB
	ledger *ledger.EscrowLedger
	config *config.Config
}

// NewMilestoneExpiryJob 创建里程碑逾期巡检任务
func NewMilestoneExpiryJob(db *gorm.DB, l *ledger.EscrowLedger, cfg *config.Config) *MilestoneExpiryJob {
	return &MilestoneExpiryJob{
		db:     db,
		ledger: l,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *MilestoneExpiryJob) GetName() string {
	return "milestone_expiry_sweeper"
}

// GetSchedule 获取调度配置
func (j *MilestoneExpiryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *MilestoneExpiryJob) Execute() {
	logger.Info("Starting milestone expiry sweep")

	var expired []model.Milestone
	err := j.db.
		Joins("JOIN project ON project.id = milestone.project_id").
		Where("milestone.deadline < ?", time.Now()).
		Where("milestone.status IN ?", []model.MilestoneStatus{
			model.MilestoneStatusPending,
			model.MilestoneStatusEvidenceSubmitted,
		}).
		Where("project.status IN ?", []model.ProjectStatus{
			model.ProjectStatusOpen,
			model.ProjectStatusFunded,
		}).
		Find(&expired).Error
	if err != nil {
		logger.Error("Failed to fetch expired milestones: %v", err)
		return
	}

	triggeredCount := 0
	for _, milestone := range expired {
		err := j.ledger.TriggerRefund(milestone.ProjectId, milestone.Idx)
		if err != nil {
			// 同一项目的前一次触发已把项目取消，后续里程碑不再处理
			if errors.Is(err, ledger.ErrProjectNotOpen) {
				continue
			}
			logger.Error("Failed to trigger refund for project %d milestone %d: %v",
				milestone.ProjectId, milestone.Idx, err)
			continue
		}

		logger.Info("Triggered refund for project %d, expired milestone %d",
			milestone.ProjectId, milestone.Idx)
		triggeredCount++
	}

	logger.Info("Milestone expiry sweep completed. Triggered %d refunds", triggeredCount)
}
