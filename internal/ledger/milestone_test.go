package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfund/mes/internal/model"
)

func TestSubmitEvidenceRequiresFundedProject(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)

	err := l.SubmitEvidence(ownerAddr, projectId, 0, testDigest)
	assert.ErrorIs(t, err, ErrProjectNotFunded)
}

func TestSubmitEvidenceAuthorization(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)

	err := l.SubmitEvidence(strangerAddr, projectId, 0, testDigest)
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = l.SubmitEvidence(ownerAddr, projectId, 7, testDigest)
	assert.ErrorIs(t, err, ErrMilestoneNotFound)
}

func TestSubmitEvidenceRecordsDigest(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)

	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	m := project.Milestones[0]
	assert.Equal(t, model.MilestoneStatusEvidenceSubmitted, m.Status)
	assert.Equal(t, testDigest.Hex(), m.EvidenceHash)
}

func TestSubmitEvidenceResubmissionPolicy(t *testing.T) {
	second := common.HexToHash("0xcafecafecafecafecafecafecafecafecafecafecafecafecafecafecafecafe")

	t.Run("last write wins when allowed", func(t *testing.T) {
		l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
		projectId := createTestProject(t, l)
		fundTestProject(t, l, projectId)

		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, second))

		project, err := l.GetProject(projectId)
		require.NoError(t, err)
		assert.Equal(t, second.Hex(), project.Milestones[0].EvidenceHash)
	})

	t.Run("rejected when disallowed", func(t *testing.T) {
		l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: false})
		projectId := createTestProject(t, l)
		fundTestProject(t, l, projectId)

		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
		err := l.SubmitEvidence(ownerAddr, projectId, 0, second)
		assert.ErrorIs(t, err, ErrMilestoneNotPending)
	})
}

func TestSubmitEvidenceAfterDeadline(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)

	l.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	err := l.SubmitEvidence(ownerAddr, projectId, 0, testDigest)
	assert.ErrorIs(t, err, ErrDeadlineExpired)
}

func TestVerifyMilestoneAuthorization(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))

	err := l.VerifyMilestone(context.Background(), ownerAddr, projectId, 0, true)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyWithoutEvidenceReleasesNothing(t *testing.T) {
	l, vault := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)

	ownerBefore := vault.Balance(ownerAddr)
	err := l.VerifyMilestone(context.Background(), verifierAddr, projectId, 0, true)
	assert.ErrorIs(t, err, ErrMilestoneNotSubmitted)
	assert.Equal(t, ownerBefore, vault.Balance(ownerAddr))
	assert.EqualValues(t, 50, vault.Balance(escrowAddr))
}

func TestVerifyApprovedReleasesTrancheOnce(t *testing.T) {
	l, vault := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, true))

	// 项目方收到该里程碑金额，项目仍为 funded（还剩两个里程碑）
	assert.EqualValues(t, 25, vault.Balance(ownerAddr))
	assert.EqualValues(t, 25, vault.Balance(escrowAddr))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusFunded, project.Status)
	assert.Equal(t, model.MilestoneStatusVerified, project.Milestones[0].Status)
	assert.NotNil(t, project.Milestones[0].VerifiedAt)

	// 终态里程碑不可再次裁定
	err = l.VerifyMilestone(ctx, verifierAddr, projectId, 0, true)
	assert.ErrorIs(t, err, ErrMilestoneNotSubmitted)
	assert.EqualValues(t, 25, vault.Balance(ownerAddr))
}

func TestVerifyAllMilestonesCompletesProject(t *testing.T) {
	l, vault := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	for idx := 0; idx < 3; idx++ {
		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, idx, testDigest))
		require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, idx, true))
	}

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, project.Status)
	assert.EqualValues(t, 50, vault.Balance(ownerAddr))
	assert.EqualValues(t, 0, vault.Balance(escrowAddr))

	// 完成后状态不回退
	err = l.Invest(ctx, investor1, projectId, investor1, 1)
	assert.ErrorIs(t, err, ErrProjectNotOpen)
	err = l.TriggerRefund(projectId, 0)
	assert.ErrorIs(t, err, ErrProjectNotOpen)
}

func TestVerifyApprovedAfterDeadline(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))

	l.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	err := l.VerifyMilestone(context.Background(), verifierAddr, projectId, 0, true)
	assert.ErrorIs(t, err, ErrDeadlineExpired)

	// 逾期后仍可拒绝，走退款路径
	err = l.VerifyMilestone(context.Background(), verifierAddr, projectId, 0, false)
	assert.NoError(t, err)
}

func TestVerifyRejectedEarmarksProportionalRefunds(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId) // investor1: 5, investor2: 45
	ctx := context.Background()

	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, false))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneStatusRejected, project.Milestones[0].Status)
	// 默认策略下项目继续存活
	assert.Equal(t, model.ProjectStatusFunded, project.Status)

	refunds, err := l.ListRefunds(projectId)
	require.NoError(t, err)
	require.Len(t, refunds, 2)

	// 5/50 × 25 = 2.5：取整后的半个单位补给最早的投资记录
	byInvestor := map[string]int64{}
	var total int64
	for _, r := range refunds {
		byInvestor[r.InvestorAddress] += r.Amount
		total += r.Amount
	}
	assert.EqualValues(t, 25, total)
	assert.EqualValues(t, 3, byInvestor[investor1])
	assert.EqualValues(t, 22, byInvestor[investor2])
}

// 含被拒里程碑的项目在其余里程碑全部验证通过后也要收口为 completed
func TestProjectCompletesAfterMixedTerminalMilestones(t *testing.T) {
	l, vault := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	// 拒绝第 0 个（25 进退款），通过第 1、2 个（15+10 释放）
	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, false))
	for idx := 1; idx < 3; idx++ {
		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, idx, testDigest))
		require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, idx, true))
	}

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, project.Status)
	assert.EqualValues(t, 25, vault.Balance(ownerAddr))

	refunds, err := l.ListRefunds(projectId)
	require.NoError(t, err)
	var total int64
	for _, r := range refunds {
		total += r.Amount
	}
	assert.EqualValues(t, 25, total)
}

// 最后一个终态事件是拒绝时同样收口
func TestProjectCompletesWhenRejectionIsLastTerminalEvent(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	for idx := 0; idx < 2; idx++ {
		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, idx, testDigest))
		require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, idx, true))
	}
	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 2, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 2, false))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, project.Status)
}

func TestRejectCancelsProjectPolicy(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true, RejectCancelsProject: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, false))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCancelled, project.Status)

	// 未释放余额整体进入退款
	refunds, err := l.ListRefunds(projectId)
	require.NoError(t, err)
	var total int64
	for _, r := range refunds {
		total += r.Amount
	}
	assert.EqualValues(t, 50, total)
}
