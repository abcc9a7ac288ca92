package handler

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 请求模型：每个操作一个强类型结构，只在边界校验一次

// InitializeRequest 初始化台账请求
type InitializeRequest struct {
	VerifierAddress string `json:"verifier_address" binding:"required"`
	AssetAddress    string `json:"asset_address" binding:"required"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Owner     string  `json:"owner" binding:"required"`
	Goal      int64   `json:"goal" binding:"required,min=1"`
	Amounts   []int64 `json:"amounts" binding:"required,min=1"`
	Deadlines []int64 `json:"deadlines" binding:"required,min=1"` // unix 秒
}

// InvestRequest 投资请求
type InvestRequest struct {
	Investor string `json:"investor" binding:"required"`
	Amount   int64  `json:"amount" binding:"required,min=1"`
}

// SubmitEvidenceRequest 提交证据请求
type SubmitEvidenceRequest struct {
	EvidenceHash string `json:"evidence_hash" binding:"required"` // 32字节摘要的十六进制
}

// VerifyMilestoneRequest 验证里程碑请求
type VerifyMilestoneRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}
