package handler

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/starfund/mes/internal/ledger"
)

// 上游网关完成签名校验后，经此头部传入已认证的调用方地址
const callerHeader = "X-Caller-Address"

// LedgerHandler 台账写操作的HTTP边界
type LedgerHandler struct {
	ledger *ledger.EscrowLedger
}

func NewLedgerHandler(l *ledger.EscrowLedger) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// callerAddress 获取已认证的调用方地址
func callerAddress(c *gin.Context) string {
	addr := c.GetHeader(callerHeader)
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}

// Initialize 初始化台账
func (h *LedgerHandler) Initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.VerifierAddress) || !common.IsHexAddress(req.AssetAddress) {
		ErrorResponse(c, http.StatusBadRequest, "invalid verifier or asset address")
		return
	}

	verifier := common.HexToAddress(req.VerifierAddress).Hex()
	assetAddr := common.HexToAddress(req.AssetAddress).Hex()

	if err := h.ledger.Initialize(verifier, assetAddr); err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "ledger initialized", nil)
}

// CreateProject 创建项目
func (h *LedgerHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.Owner) {
		ErrorResponse(c, http.StatusBadRequest, "invalid owner address")
		return
	}

	deadlines := make([]time.Time, len(req.Deadlines))
	for i, ts := range req.Deadlines {
		deadlines[i] = time.Unix(ts, 0).UTC()
	}

	owner := common.HexToAddress(req.Owner).Hex()
	projectId, err := h.ledger.CreateProject(callerAddress(c), owner, req.Goal, req.Amounts, deadlines)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "project created", gin.H{
		"project_id": projectId,
	})
}

// Invest 投资项目
func (h *LedgerHandler) Invest(c *gin.Context) {
	projectId, err := parseProjectId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid project id")
		return
	}

	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.Investor) {
		ErrorResponse(c, http.StatusBadRequest, "invalid investor address")
		return
	}

	investor := common.HexToAddress(req.Investor).Hex()
	err = h.ledger.Invest(c.Request.Context(), callerAddress(c), projectId, investor, req.Amount)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "investment accepted", nil)
}

// SubmitEvidence 提交里程碑证据
func (h *LedgerHandler) SubmitEvidence(c *gin.Context) {
	projectId, idx, err := parseMilestoneRef(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req SubmitEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	digest, ok := parseDigest(req.EvidenceHash)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "evidence_hash must be a 32-byte hex digest")
		return
	}

	if err := h.ledger.SubmitEvidence(callerAddress(c), projectId, idx, digest); err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "evidence submitted", nil)
}

// VerifyMilestone 验证里程碑
func (h *LedgerHandler) VerifyMilestone(c *gin.Context) {
	projectId, idx, err := parseMilestoneRef(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req VerifyMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	err = h.ledger.VerifyMilestone(c.Request.Context(), callerAddress(c), projectId, idx, *req.Approved)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "milestone verdict recorded", nil)
}

// TriggerRefund 触发逾期里程碑退款
func (h *LedgerHandler) TriggerRefund(c *gin.Context) {
	projectId, idx, err := parseMilestoneRef(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.TriggerRefund(projectId, idx); err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "refund triggered", nil)
}

func parseProjectId(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func parseMilestoneRef(c *gin.Context) (int64, int, error) {
	projectId, err := parseProjectId(c)
	if err != nil {
		return 0, 0, err
	}
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil {
		return 0, 0, err
	}
	return projectId, idx, nil
}

// parseDigest 解析32字节十六进制摘要
func parseDigest(s string) (common.Hash, bool) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(raw), true
}
