package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/model"
)

// CreateProject 创建项目及其全部里程碑。里程碑金额之和必须等于目标
// 金额，截止时间必须严格递增，否则整个调用失败且不分配项目号
func (l *EscrowLedger) CreateProject(caller, owner string, goal int64, amounts []int64, deadlines []time.Time) (int64, error) {
	if err := authorize(owner, caller); err != nil {
		return 0, err
	}
	if err := l.validateSchedule(goal, amounts, deadlines); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var projectId int64
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}

		project := model.Project{
			OwnerAddress: owner,
			GoalAmount:   goal,
			RaisedAmount: 0,
			Status:       model.ProjectStatusOpen,
		}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		for i := range amounts {
			milestone := model.Milestone{
				ProjectId: project.Id,
				Idx:       i,
				Amount:    amounts[i],
				Deadline:  deadlines[i],
				Status:    model.MilestoneStatusPending,
			}
			if err := tx.Create(&milestone).Error; err != nil {
				return err
			}
		}

		if err := recordEvent(tx, project.Id, model.EventProjectCreated, map[string]interface{}{
			"owner":      owner,
			"goal":       goal,
			"milestones": len(amounts),
		}); err != nil {
			return err
		}

		projectId = project.Id
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Project %d created by %s, goal %d, %d milestones", projectId, owner, goal, len(amounts))
	return projectId, nil
}

// validateSchedule 校验里程碑计划
func (l *EscrowLedger) validateSchedule(goal int64, amounts []int64, deadlines []time.Time) error {
	if len(amounts) == 0 || len(amounts) != len(deadlines) {
		return fmt.Errorf("%w: amounts and deadlines must have equal non-zero length", ErrInvalidMilestoneSchedule)
	}
	if goal <= 0 {
		return fmt.Errorf("%w: goal must be positive", ErrInvalidMilestoneSchedule)
	}

	var sum int64
	for i, amount := range amounts {
		if amount <= 0 {
			return fmt.Errorf("%w: milestone %d amount must be positive", ErrInvalidMilestoneSchedule, i)
		}
		sum += amount
		if sum < 0 {
			return fmt.Errorf("%w: milestone amounts overflow", ErrInvalidMilestoneSchedule)
		}
	}
	if sum != goal {
		return fmt.Errorf("%w: milestone amounts sum to %d, goal is %d", ErrInvalidMilestoneSchedule, sum, goal)
	}

	now := l.now()
	for i, deadline := range deadlines {
		if !deadline.After(now) {
			return fmt.Errorf("%w: milestone %d deadline is in the past", ErrInvalidMilestoneSchedule, i)
		}
		if i > 0 && !deadline.After(deadlines[i-1]) {
			return fmt.Errorf("%w: deadlines must be strictly increasing", ErrInvalidMilestoneSchedule)
		}
	}

	return nil
}

// Invest 投资：先由资产协作方把资金从投资人划入托管账户，划转成功
// 后才更新台账。补齐目标金额的那一次调用把项目置为 funded
func (l *EscrowLedger) Invest(ctx context.Context, caller string, projectId int64, investor string, amount int64) error {
	if err := authorize(investor, caller); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadConfig(tx); err != nil {
			return err
		}

		project, err := loadProject(tx, projectId)
		if err != nil {
			return err
		}
		if project.Status != model.ProjectStatusOpen {
			return ErrProjectNotOpen
		}
		// 用减法比较，避免 raised+amount 在接近 MaxInt64 时溢出
		if amount > project.GoalAmount-project.RaisedAmount {
			return ErrOverfundingRejected
		}

		// 全部前置检查通过后才触碰资金
		txHash, err := l.transferor.Transfer(ctx, investor, l.escrowAddress, amount)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAssetTransferFailed, err)
		}

		var investment model.Investment
		err = tx.Where("project_id = ? AND investor_address = ?", projectId, investor).
			First(&investment).Error
		switch {
		case err == nil:
			investment.Amount += amount
			if err := tx.Save(&investment).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			investment = model.Investment{
				ProjectId:       projectId,
				InvestorAddress: investor,
				Amount:          amount,
			}
			if err := tx.Create(&investment).Error; err != nil {
				return err
			}
		default:
			return err
		}

		project.RaisedAmount += amount
		if project.RaisedAmount == project.GoalAmount {
			project.Status = model.ProjectStatusFunded
		}
		if err := tx.Save(project).Error; err != nil {
			return err
		}

		if err := recordEvent(tx, projectId, model.EventInvested, map[string]interface{}{
			"investor": investor,
			"amount":   amount,
			"raised":   project.RaisedAmount,
			"tx_hash":  txHash,
		}); err != nil {
			return err
		}

		if project.Status == model.ProjectStatusFunded {
			if err := recordEvent(tx, projectId, model.EventProjectFunded, nil); err != nil {
				return err
			}
			logger.Info("Project %d fully funded at %d", projectId, project.RaisedAmount)
		}

		return nil
	})
}
