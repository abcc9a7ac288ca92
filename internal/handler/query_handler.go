package handler

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/starfund/mes/internal/ledger"
)

// QueryHandler 台账只读查询的HTTP边界
type QueryHandler struct {
	ledger *ledger.EscrowLedger
}

func NewQueryHandler(l *ledger.EscrowLedger) *QueryHandler {
	return &QueryHandler{ledger: l}
}

// GetProject 获取项目详情
func (h *QueryHandler) GetProject(c *gin.Context) {
	projectId, err := parseProjectId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := h.ledger.GetProject(projectId)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"project": project})
}

// GetProjects 获取项目列表
func (h *QueryHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.ledger.ListProjects(status, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetProjectCount 获取项目总数
func (h *QueryHandler) GetProjectCount(c *gin.Context) {
	count, err := h.ledger.GetProjectCount()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"count": count})
}

// GetInvestorAmount 获取投资人累计投资额
func (h *QueryHandler) GetInvestorAmount(c *gin.Context) {
	projectId, err := parseProjectId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid project id")
		return
	}

	addr := c.Param("address")
	if !common.IsHexAddress(addr) {
		ErrorResponse(c, http.StatusBadRequest, "invalid investor address")
		return
	}

	amount, err := h.ledger.GetInvestorAmount(projectId, common.HexToAddress(addr).Hex())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"project_id": projectId,
		"investor":   common.HexToAddress(addr).Hex(),
		"amount":     amount,
	})
}

// GetProjectRefunds 获取项目退款记录
func (h *QueryHandler) GetProjectRefunds(c *gin.Context) {
	projectId, err := parseProjectId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid project id")
		return
	}

	records, err := h.ledger.ListRefunds(projectId)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"refunds": records})
}

// GetProjectEvents 获取项目审计事件
func (h *QueryHandler) GetProjectEvents(c *gin.Context) {
	projectId, err := parseProjectId(c)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid project id")
		return
	}

	events, err := h.ledger.ListEvents(projectId)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"events": events})
}
