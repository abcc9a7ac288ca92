package task

import (
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"github.com/starfund/mes/internal/asset"
	"github.com/starfund/mes/internal/config"
	"github.com/starfund/mes/internal/ledger"
	"github.com/starfund/mes/internal/logger"
)

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	jobs      []Job
}

// NewManager 创建任务管理器并注册全部任务
func NewManager(db *gorm.DB, l *ledger.EscrowLedger, transferor asset.Transferor, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		jobs: []Job{
			NewMilestoneExpiryJob(db, l, cfg),
			NewRefundPayoutJob(db, transferor, cfg),
		},
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, l *ledger.EscrowLedger, transferor asset.Transferor, cfg *config.Config) *Manager {
	manager := NewManager(db, l, transferor, cfg)
	manager.RegisterJobs()
	manager.scheduler.Start()
	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	for _, job := range m.jobs {
		_, err := m.scheduler.NewJob(
			job.GetSchedule(),
			gocron.NewTask(job.Execute),
			gocron.WithName(job.GetName()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			logger.Error("Failed to register job %s: %v", job.GetName(), err)
		}
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
