package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfund/mes/internal/model"
)

func TestProportionalSharesExactSum(t *testing.T) {
	tests := []struct {
		name    string
		amounts []int64
		total   int64
	}{
		{"even split", []int64{25, 25}, 10},
		{"half unit dust", []int64{5, 45}, 25},
		{"all dust", []int64{1, 1, 1}, 2},
		{"single investor", []int64{50}, 37},
		{"uneven many", []int64{7, 13, 3, 20, 6, 1}, 29},
		{"large values", []int64{999999999999, 1, 333333333333}, 123456789},
		{"total exceeds some stakes", []int64{1, 2, 3}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			investments := make([]model.Investment, len(tt.amounts))
			for i, a := range tt.amounts {
				investments[i] = model.Investment{Id: int64(i + 1), Amount: a}
			}

			shares := proportionalShares(investments, tt.total)
			require.Len(t, shares, len(tt.amounts))

			var sum int64
			for _, s := range shares {
				assert.GreaterOrEqual(t, s, int64(0))
				sum += s
			}
			// 零舍入泄漏：份额之和必须恰好等于退款总额
			assert.Equal(t, tt.total, sum)
		})
	}
}

func TestProportionalSharesDustGoesToEarliest(t *testing.T) {
	investments := []model.Investment{
		{Id: 1, Amount: 5},
		{Id: 2, Amount: 45},
	}

	// 5/50×25 = 2.5, 45/50×25 = 22.5：两个半单位的尾差共1，补给记录1
	shares := proportionalShares(investments, 25)
	assert.Equal(t, []int64{3, 22}, shares)

	// 同输入同输出，分配是确定性的
	again := proportionalShares(investments, 25)
	assert.Equal(t, shares, again)
}

func TestTriggerRefundBeforeDeadline(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)

	err := l.TriggerRefund(projectId, 0)
	assert.ErrorIs(t, err, ErrDeadlineNotReached)

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusFunded, project.Status)
}

func TestTriggerRefundOnVerifiedMilestone(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, true))

	l.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	err := l.TriggerRefund(projectId, 0)
	assert.ErrorIs(t, err, ErrMilestoneAlreadyVerified)
}

func TestTriggerRefundCancelsAndEarmarksUnreleasedBalance(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	// 先释放第一个里程碑的 25
	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, true))

	// 第二个里程碑逾期
	l.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	require.NoError(t, l.TriggerRefund(projectId, 1))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCancelled, project.Status)

	// 退款总额 = raised(50) - 已释放(25)
	refunds, err := l.ListRefunds(projectId)
	require.NoError(t, err)
	var total int64
	for _, r := range refunds {
		total += r.Amount
		assert.Equal(t, model.RefundStatusPending, r.Status)
	}
	assert.EqualValues(t, 25, total)

	// 已取消的项目不可再次触发
	err = l.TriggerRefund(projectId, 2)
	assert.ErrorIs(t, err, ErrProjectNotOpen)
}

func TestTriggerRefundOnPartiallyFundedProject(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	ctx := context.Background()

	// 只筹到 30，未满额，项目仍 open
	require.NoError(t, l.Invest(ctx, investor1, projectId, investor1, 10))
	require.NoError(t, l.Invest(ctx, investor2, projectId, investor2, 20))

	l.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	require.NoError(t, l.TriggerRefund(projectId, 0))

	project, err := l.GetProject(projectId)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCancelled, project.Status)

	refunds, err := l.ListRefunds(projectId)
	require.NoError(t, err)
	var total int64
	byInvestor := map[string]int64{}
	for _, r := range refunds {
		total += r.Amount
		byInvestor[r.InvestorAddress] += r.Amount
	}
	assert.EqualValues(t, 30, total)
	assert.EqualValues(t, 10, byInvestor[investor1])
	assert.EqualValues(t, 20, byInvestor[investor2])
}

func TestRefundExactnessForArbitraryContributionSets(t *testing.T) {
	contributionSets := [][]struct {
		investor string
		amount   int64
	}{
		{{investor1, 1}, {investor2, 1}, {investor3, 48}},
		{{investor1, 17}, {investor2, 16}, {investor3, 17}},
		{{investor1, 49}, {investor2, 1}},
		{{investor1, 50}},
	}

	for _, set := range contributionSets {
		l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
		projectId := createTestProject(t, l)
		ctx := context.Background()

		for _, c := range set {
			require.NoError(t, l.Invest(ctx, c.investor, projectId, c.investor, c.amount))
		}

		require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
		require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, false))

		refunds, err := l.ListRefunds(projectId)
		require.NoError(t, err)
		var total int64
		for _, r := range refunds {
			total += r.Amount
		}
		assert.EqualValues(t, 25, total, "refund sum must equal the rejected tranche")
	}
}

func TestRefundsPreserveInvestmentRecords(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)

	l.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	require.NoError(t, l.TriggerRefund(projectId, 0))

	// 退款单独记账，原始投资记录不变
	amount, err := l.GetInvestorAmount(projectId, investor1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, amount)
	amount, err = l.GetInvestorAmount(projectId, investor2)
	require.NoError(t, err)
	assert.EqualValues(t, 45, amount)
}

func TestAuditEventsAreAppended(t *testing.T) {
	l, _ := newTestLedger(t, Policy{AllowEvidenceResubmit: true})
	projectId := createTestProject(t, l)
	fundTestProject(t, l, projectId)
	ctx := context.Background()

	require.NoError(t, l.SubmitEvidence(ownerAddr, projectId, 0, testDigest))
	require.NoError(t, l.VerifyMilestone(ctx, verifierAddr, projectId, 0, true))

	events, err := l.ListEvents(projectId)
	require.NoError(t, err)

	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	assert.Contains(t, types, model.EventProjectCreated)
	assert.Contains(t, types, model.EventInvested)
	assert.Contains(t, types, model.EventProjectFunded)
	assert.Contains(t, types, model.EventEvidenceSubmitted)
	assert.Contains(t, types, model.EventMilestoneVerified)
}
