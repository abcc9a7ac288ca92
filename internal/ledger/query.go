package ledger

import (
	"errors"

	"gorm.io/gorm"

	"github.com/starfund/mes/internal/model"
)

// GetProject 获取项目详情（含全部里程碑）
func (l *EscrowLedger) GetProject(projectId int64) (*model.Project, error) {
	var project model.Project
	err := l.db.Preload("Milestones", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).First(&project, projectId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// ListProjects 按状态分页获取项目列表
func (l *EscrowLedger) ListProjects(status string, page, pageSize int) ([]model.Project, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	query := l.db.Model(&model.Project{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []model.Project
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// GetInvestorAmount 获取投资人对某项目的累计投资额
func (l *EscrowLedger) GetInvestorAmount(projectId int64, investor string) (int64, error) {
	var investment model.Investment
	err := l.db.Where("project_id = ? AND investor_address = ?", projectId, investor).
		First(&investment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return investment.Amount, nil
}

// GetProjectCount 获取已创建的项目总数
func (l *EscrowLedger) GetProjectCount() (int64, error) {
	var count int64
	err := l.db.Model(&model.Project{}).Count(&count).Error
	return count, err
}

// ListRefunds 获取项目的退款记录
func (l *EscrowLedger) ListRefunds(projectId int64) ([]model.RefundRecord, error) {
	var records []model.RefundRecord
	err := l.db.Where("project_id = ?", projectId).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// ListEvents 获取项目的审计事件
func (l *EscrowLedger) ListEvents(projectId int64) ([]model.Event, error) {
	var events []model.Event
	err := l.db.Where("project_id = ?", projectId).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
