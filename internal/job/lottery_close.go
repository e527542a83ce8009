package job

import (
	"context"
	"log"
	"time"

	"lotterymarket/internal/config"
	"lotterymarket/internal/service"

	"gorm.io/gorm"
)

// LotteryCloseJob 到期关闭任务
// 周期扫描已过结束时间的活动并翻转为 CLOSED，
// 关闭后购票入口随之对这些活动失效；开奖和结算由下游消费关闭事件处理
type LotteryCloseJob struct {
	db             *gorm.DB
	lotteryService *service.LotteryService
	cfg            *config.Config
	stopCh         chan struct{}
	interval       time.Duration
	batchSize      int
}

func NewLotteryCloseJob(db *gorm.DB, cfg *config.Config) *LotteryCloseJob {
	batchSize := cfg.Business.LotteryCloseBatch
	if batchSize <= 0 {
		batchSize = 100
	}
	return &LotteryCloseJob{
		db:             db,
		lotteryService: service.NewLotteryService(db, cfg),
		cfg:            cfg,
		stopCh:         make(chan struct{}),
		interval:       10 * time.Second,
		batchSize:      batchSize,
	}
}

func (j *LotteryCloseJob) Start(ctx context.Context) {
	log.Println("[LotteryCloseJob] 活动到期关闭任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LotteryCloseJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LotteryCloseJob] 任务停止")
			return
		case <-ticker.C:
			j.closeExpiredLotteries(ctx)
		}
	}
}

func (j *LotteryCloseJob) Stop() {
	close(j.stopCh)
}

func (j *LotteryCloseJob) closeExpiredLotteries(ctx context.Context) {
	closedCount, err := j.lotteryService.CloseExpiredLotteries(ctx, j.batchSize)
	if err != nil {
		log.Printf("[LotteryCloseJob] 扫描到期活动失败: %v", err)
		return
	}

	if closedCount > 0 {
		log.Printf("[LotteryCloseJob] 本次关闭 %d 个到期活动", closedCount)
	}
}
