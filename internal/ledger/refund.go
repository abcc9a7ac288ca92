package ledger

import (
	"fmt"
	"math/big"

	"gorm.io/gorm"

	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/model"
)

// TriggerRefund 里程碑逾期兜底：截止时间已过仍未验证通过的里程碑，
// 任何人都可触发，项目取消并把全部未释放资金按比例转入退款。
// 这是投资人资金可回收性的保底路径
func (l *EscrowLedger) TriggerRefund(projectId int64, idx int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		project, err := loadProject(tx, projectId)
		if err != nil {
			return err
		}
		if project.Status != model.ProjectStatusOpen && project.Status != model.ProjectStatusFunded {
			return ErrProjectNotOpen
		}

		milestone, err := loadMilestone(tx, projectId, idx)
		if err != nil {
			return err
		}
		if milestone.Status == model.MilestoneStatusVerified {
			return ErrMilestoneAlreadyVerified
		}
		if !l.now().After(milestone.Deadline) {
			return ErrDeadlineNotReached
		}

		reason := fmt.Sprintf("milestone %d deadline expired", idx)
		return l.cancelProject(tx, project, reason)
	})
}

// cancelProject 取消项目并把未释放余额整体转入退款
func (l *EscrowLedger) cancelProject(tx *gorm.DB, project *model.Project, reason string) error {
	available, err := refundableBalance(tx, project)
	if err != nil {
		return err
	}

	project.Status = model.ProjectStatusCancelled
	if err := tx.Save(project).Error; err != nil {
		return err
	}
	if err := recordEvent(tx, project.Id, model.EventProjectCancelled, map[string]interface{}{
		"reason": reason,
	}); err != nil {
		return err
	}

	logger.Info("Project %d cancelled (%s), refundable balance %d", project.Id, reason, available)

	return l.earmarkRefunds(tx, project, -1, available, reason)
}

// refundableBalance 未释放且尚未进入退款的托管余额：
// raised - 已释放里程碑金额 - 已预留退款金额
func refundableBalance(tx *gorm.DB, project *model.Project) (int64, error) {
	var released int64
	err := tx.Model(&model.ReleaseRecord{}).
		Where("project_id = ?", project.Id).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&released).Error
	if err != nil {
		return 0, err
	}

	var earmarked int64
	err = tx.Model(&model.RefundRecord{}).
		Where("project_id = ?", project.Id).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&earmarked).Error
	if err != nil {
		return 0, err
	}

	return project.RaisedAmount - released - earmarked, nil
}

// earmarkRefunds 把 total 按投资比例拆分成退款记录。
// milestoneIdx 为 -1 表示项目级退款（取消）
func (l *EscrowLedger) earmarkRefunds(tx *gorm.DB, project *model.Project, milestoneIdx int, total int64, reason string) error {
	if total <= 0 || project.RaisedAmount == 0 {
		return nil
	}

	var investments []model.Investment
	err := tx.Where("project_id = ?", project.Id).
		Order("id ASC").
		Find(&investments).Error
	if err != nil {
		return err
	}
	if len(investments) == 0 {
		return nil
	}

	shares := proportionalShares(investments, total)
	for i, investment := range investments {
		if shares[i] == 0 {
			continue
		}
		record := model.RefundRecord{
			ProjectId:       project.Id,
			MilestoneIdx:    milestoneIdx,
			InvestorAddress: investment.InvestorAddress,
			Amount:          shares[i],
			Status:          model.RefundStatusPending,
			RefundReason:    reason,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}

	return recordEvent(tx, project.Id, model.EventRefundEarmarked, map[string]interface{}{
		"milestone_idx": milestoneIdx,
		"total":         total,
		"reason":        reason,
	})
}

// proportionalShares 整数安全的按比例拆分：每人先取
// floor(amount_i * total / raised)，余数从最早的投资记录起逐一补齐，
// 保证份额之和恰好等于 total
func proportionalShares(investments []model.Investment, total int64) []int64 {
	var raised int64
	for _, inv := range investments {
		raised += inv.Amount
	}

	shares := make([]int64, len(investments))
	bigTotal := big.NewInt(total)
	bigRaised := big.NewInt(raised)

	var distributed int64
	for i, inv := range investments {
		share := new(big.Int).Mul(big.NewInt(inv.Amount), bigTotal)
		share.Div(share, bigRaised)
		shares[i] = share.Int64()
		distributed += shares[i]
	}

	// 取整尾差按记录先后顺序逐单位分配
	dust := total - distributed
	for i := 0; dust > 0; i = (i + 1) % len(shares) {
		shares[i]++
		dust--
	}

	return shares
}
