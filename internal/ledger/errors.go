package ledger

import (
	"errors"
)

// 台账操作的错误分类。所有失败同步返回，调用方据此区分处理；
// 任何失败都不产生部分状态变更
var (
	ErrAlreadyInitialized       = errors.New("ledger already initialized")
	ErrNotInitialized           = errors.New("ledger not initialized")
	ErrUnauthorized             = errors.New("caller lacks the required role")
	ErrInvalidMilestoneSchedule = errors.New("invalid milestone schedule")
	ErrProjectNotFound          = errors.New("project not found")
	ErrMilestoneNotFound        = errors.New("milestone not found")
	ErrProjectNotOpen           = errors.New("project is not open")
	ErrProjectNotFunded         = errors.New("project is not funded")
	ErrOverfundingRejected      = errors.New("investment would exceed funding goal")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrMilestoneNotPending      = errors.New("milestone is not pending")
	ErrMilestoneNotSubmitted    = errors.New("milestone has no submitted evidence")
	ErrMilestoneAlreadyVerified = errors.New("milestone already verified")
	ErrDeadlineExpired          = errors.New("milestone deadline has expired")
	ErrDeadlineNotReached       = errors.New("milestone deadline not yet reached")
	ErrAssetTransferFailed      = errors.New("asset transfer failed")
)
