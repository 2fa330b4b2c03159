package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"pixvault/config"
	"pixvault/logger"
	"pixvault/queue"
	"pixvault/services"
)

// Worker 消费分析队列。同一任务同一时刻只会投递给一个处理器,
// 但漏确认会导致重投, 下游通过终态检查容忍 at-least-once
type Worker struct {
	srv      *asynq.Server
	analysis services.AnalysisService
}

func New(redisOpt asynq.RedisClientOpt, cfg *config.QueueConfig, analysis services.AnalysisService) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.Name: 1,
		},
		RetryDelayFunc: queue.RetryDelay(time.Duration(cfg.RetryBaseDelay) * time.Second),
	})
	return &Worker{srv: srv, analysis: analysis}
}

func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeImageAnalysis, w.handleAnalysis)

	if err := w.srv.Start(mux); err != nil {
		return fmt.Errorf("启动分析 Worker 失败: %w", err)
	}
	log.Println("分析 Worker 已启动")
	return nil
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

func (w *Worker) handleAnalysis(ctx context.Context, t *asynq.Task) error {
	var payload queue.AnalysisPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("解析任务载荷失败: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	lastAttempt := retried >= maxRetry
	logger.Debugf("收到分析任务: image_id=%d attempt=%d/%d", payload.ImageID, retried+1, maxRetry+1)

	err := w.analysis.ProcessImage(ctx, payload.ImageID, payload.ImageURL, lastAttempt)
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrPermanentAnalysis) {
		// 永久失败: 状态已置 failed, 阻止队列继续重试
		log.Printf("分析永久失败: image_id=%d: %v", payload.ImageID, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	// 瞬时失败交还队列, 由指数退避决定下一次投递
	log.Printf("分析暂时失败 (attempt %d/%d): image_id=%d: %v", retried+1, maxRetry+1, payload.ImageID, err)
	return err
}
