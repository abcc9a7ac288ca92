package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/starfund/mes/internal/asset"
	"github.com/starfund/mes/internal/config"
	"github.com/starfund/mes/internal/database"
	"github.com/starfund/mes/internal/ledger"
	"github.com/starfund/mes/internal/logger"
	"github.com/starfund/mes/internal/router"
	"github.com/starfund/mes/internal/task"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	level := logger.ParseLogLevel(cfg.Log.Level)
	if cfg.Log.Output == "file" {
		fileLogger, err := logger.NewWithFileRotation(level, cfg.Log.File)
		if err != nil {
			log.Fatalf("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(fileLogger)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化资产划转客户端
	var transferor asset.Transferor
	if cfg.Chain.Mode == "chain" {
		client, err := asset.Init(cfg.Chain)
		if err != nil {
			logger.Fatal("Failed to initialize asset client: %v", err)
		}
		transferor = client
	} else {
		transferor = asset.NewVault()
		logger.Warn("Running with in-process asset vault, transfers are not on-chain")
	}

	// 初始化托管台账
	escrowLedger := ledger.New(db, transferor, cfg.Escrow.EscrowAddress, ledger.Policy{
		RejectCancelsProject:  cfg.Escrow.RejectCancelsProject,
		AllowEvidenceResubmit: cfg.Escrow.AllowEvidenceResubmit,
	})

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(escrowLedger)

	// 启动定时任务
	manager := task.Start(db, escrowLedger, transferor, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
