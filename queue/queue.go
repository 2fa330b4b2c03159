package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pixvault/config"
)

// TypeImageAnalysis 图像 AI 分析任务类型
const TypeImageAnalysis = "image:analyze"

// AnalysisPayload 入队载荷: 图像 ID + 可解析的拉取引用 (签名 URL)
type AnalysisPayload struct {
	ImageID  uint   `json:"image_id"`
	ImageURL string `json:"image_url"`
}

// Enqueuer 任务入队能力, 入队不会阻塞在下游消费上
type Enqueuer interface {
	EnqueueAnalysis(ctx context.Context, payload AnalysisPayload) (string, error)
}

// AsynqQueue 基于 asynq/Redis 的持久化队列, at-least-once 投递;
// 重试耗尽的任务进入 archived 集合供人工排查, 不再自动重试
type AsynqQueue struct {
	client   *asynq.Client
	queue    string
	maxRetry int
	timeout  time.Duration
}

func NewAsynqQueue(redisOpt asynq.RedisClientOpt, cfg *config.QueueConfig) *AsynqQueue {
	return &AsynqQueue{
		client:   asynq.NewClient(redisOpt),
		queue:    cfg.Name,
		maxRetry: cfg.MaxRetry,
		timeout:  time.Duration(cfg.TaskTimeout) * time.Second,
	}
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

func (q *AsynqQueue) EnqueueAnalysis(ctx context.Context, payload AnalysisPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化任务载荷失败: %w", err)
	}

	task := asynq.NewTask(TypeImageAnalysis, b)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(q.queue),
		asynq.MaxRetry(q.maxRetry),
		asynq.Timeout(q.timeout),
	)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// RetryDelay 指数退避: base * 2^n, n 为已失败次数
func RetryDelay(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		delay := base
		for i := 0; i < n; i++ {
			delay *= 2
		}
		return delay
	}
}
