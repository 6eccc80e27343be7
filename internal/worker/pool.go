package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/qs3c/yardconnect/internal/pkg/queue"
)

// Source 阻塞读取通知的队列
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.NotificationMessage, error)
}

// Run 启动 workers 个协程消费队列，ctx 取消后等待全部退出
func Run(ctx context.Context, source Source, processor *Processor, workers int, popTimeout time.Duration) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					slog.Info("worker shutting down", "worker", workerID)
					return
				default:
				}

				msg, err := source.Pop(ctx, popTimeout)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Error("pop notification failed", "worker", workerID, "error", err)
					// 避免 Redis 不可用时空转
					time.Sleep(popTimeout)
					continue
				}

				if msg == nil {
					continue // 超时，继续等待
				}

				if err := processor.Process(ctx, msg); err != nil {
					slog.Error("notification failed", "worker", workerID, "review_id", msg.ReviewID, "error", err)
				}
			}
		}(i)
	}
	wg.Wait()
}
