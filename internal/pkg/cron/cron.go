package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PendingSweeper 释放过期的待验证评价
type PendingSweeper interface {
	ReleaseExpired(ctx context.Context) (int64, error)
}

type Service struct {
	sweeper  PendingSweeper
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewService(sweeper PendingSweeper, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		sweeper:  sweeper,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	s.wg.Add(1)
	go s.runSweep()
	slog.Info("cron service started", "sweep_interval", s.interval.String())
}

// Stop 停止定时任务并等待正在执行的任务结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	slog.Info("cron service stopped")
}

// runSweep 周期性释放过期的待验证评价
func (s *Service) runSweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行一次清理（用于测试或手动触发）
func (s *Service) RunNow() int64 {
	if s.sweeper == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	released, err := s.sweeper.ReleaseExpired(ctx)
	if err != nil {
		slog.Error("pending review sweep failed", "error", err)
		return 0
	}
	if released > 0 {
		slog.Info("pending review sweep", "released", released)
	}
	return released
}
