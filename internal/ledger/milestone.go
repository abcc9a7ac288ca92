package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/model"
)

// SubmitEvidence 项目方为里程碑提交证据摘要。是否允许在验证前
// 覆盖已提交的摘要由策略决定
func (l *EscrowLedger) SubmitEvidence(caller string, projectId int64, idx int, evidence common.Hash) error {
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
		if err := authorize(project.OwnerAddress, caller); err != nil {
			return err
		}
		if project.Status != model.ProjectStatusFunded {
			return ErrProjectNotFunded
		}

		milestone, err := loadMilestone(tx, projectId, idx)
		if err != nil {
			return err
		}

		resubmit := milestone.Status == model.MilestoneStatusEvidenceSubmitted && l.policy.AllowEvidenceResubmit
		if milestone.Status != model.MilestoneStatusPending && !resubmit {
			return ErrMilestoneNotPending
		}
		if l.now().After(milestone.Deadline) {
			return ErrDeadlineExpired
		}

		milestone.EvidenceHash = evidence.Hex()
		milestone.Status = model.MilestoneStatusEvidenceSubmitted
		if err := tx.Save(milestone).Error; err != nil {
			return err
		}

		return recordEvent(tx, projectId, model.EventEvidenceSubmitted, map[string]interface{}{
			"milestone_idx": idx,
			"evidence_hash": milestone.EvidenceHash,
			"resubmitted":   resubmit,
		})
	})
}

// VerifyMilestone 验证人裁定里程碑。通过则向项目方释放该里程碑
// 金额（恰好一次）；拒绝则该份额进入按比例退款
func (l *EscrowLedger) VerifyMilestone(ctx context.Context, caller string, projectId int64, idx int, approved bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if err := authorize(cfg.VerifierAddress, caller); err != nil {
			return err
		}

		project, err := loadProject(tx, projectId)
		if err != nil {
			return err
		}
		milestone, err := loadMilestone(tx, projectId, idx)
		if err != nil {
			return err
		}
		if milestone.Status != model.MilestoneStatusEvidenceSubmitted {
			return ErrMilestoneNotSubmitted
		}

		if approved {
			return l.approveMilestone(ctx, tx, project, milestone)
		}
		return l.rejectMilestone(tx, project, milestone)
	})
}

// approveMilestone 通过验证并释放资金
func (l *EscrowLedger) approveMilestone(ctx context.Context, tx *gorm.DB, project *model.Project, milestone *model.Milestone) error {
	// 截止后不可再通过验证
	if l.now().After(milestone.Deadline) {
		return ErrDeadlineExpired
	}

	txHash, err := l.transferor.Transfer(ctx, l.escrowAddress, project.OwnerAddress, milestone.Amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetTransferFailed, err)
	}

	now := l.now()
	milestone.Status = model.MilestoneStatusVerified
	milestone.VerifiedAt = &now
	if err := tx.Save(milestone).Error; err != nil {
		return err
	}

	release := model.ReleaseRecord{
		ProjectId:    project.Id,
		MilestoneIdx: milestone.Idx,
		OwnerAddress: project.OwnerAddress,
		Amount:       milestone.Amount,
		TxHash:       txHash,
	}
	if err := tx.Create(&release).Error; err != nil {
		return err
	}

	if err := recordEvent(tx, project.Id, model.EventMilestoneVerified, map[string]interface{}{
		"milestone_idx": milestone.Idx,
		"amount":        milestone.Amount,
		"tx_hash":       txHash,
	}); err != nil {
		return err
	}

	logger.Info("Milestone %d of project %d verified, released %d to %s",
		milestone.Idx, project.Id, milestone.Amount, project.OwnerAddress)

	return l.completeIfSettled(tx, project)
}

// completeIfSettled 所有里程碑都到终态（verified 或 rejected）后项目完成，
// 此时每一份资金要么已释放、要么已转入退款，项目状态机收口
func (l *EscrowLedger) completeIfSettled(tx *gorm.DB, project *model.Project) error {
	var remaining int64
	err := tx.Model(&model.Milestone{}).
		Where("project_id = ? AND status NOT IN ?", project.Id,
			[]model.MilestoneStatus{model.MilestoneStatusVerified, model.MilestoneStatusRejected}).
		Count(&remaining).Error
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	project.Status = model.ProjectStatusCompleted
	if err := tx.Save(project).Error; err != nil {
		return err
	}
	if err := recordEvent(tx, project.Id, model.EventProjectCompleted, nil); err != nil {
		return err
	}
	logger.Info("Project %d completed", project.Id)
	return nil
}

// rejectMilestone 拒绝里程碑：份额转入退款；按策略可能取消整个项目
func (l *EscrowLedger) rejectMilestone(tx *gorm.DB, project *model.Project, milestone *model.Milestone) error {
	milestone.Status = model.MilestoneStatusRejected
	if err := tx.Save(milestone).Error; err != nil {
		return err
	}
	if err := recordEvent(tx, project.Id, model.EventMilestoneRejected, map[string]interface{}{
		"milestone_idx": milestone.Idx,
		"amount":        milestone.Amount,
	}); err != nil {
		return err
	}

	logger.Info("Milestone %d of project %d rejected", milestone.Idx, project.Id)

	reason := fmt.Sprintf("milestone %d rejected", milestone.Idx)

	if l.policy.RejectCancelsProject {
		return l.cancelProject(tx, project, reason)
	}

	available, err := refundableBalance(tx, project)
	if err != nil {
		return err
	}
	tranche := milestone.Amount
	if tranche > available {
		tranche = available
	}
	if err := l.earmarkRefunds(tx, project, milestone.Idx, tranche, reason); err != nil {
		return err
	}
	return l.completeIfSettled(tx, project)
}
