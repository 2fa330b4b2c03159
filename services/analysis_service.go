package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"gorm.io/gorm"

	"pixvault/repositories"
	"pixvault/storage"
	"pixvault/vision"
)

// ErrPermanentAnalysis 标记不可重试的分析失败: 拉取引用损坏、
// 拉取收到明确的客户端错误、或图片本身无法解码。
// Worker 收到它之后会阻止队列继续重试
var ErrPermanentAnalysis = errors.New("permanent analysis failure")

type AnalysisService interface {
	ProcessImage(ctx context.Context, imageID uint, imageURL string, lastAttempt bool) error
}

type analysisService struct {
	metadata  repositories.MetadataRepository
	store     storage.ObjectStorage
	annotator vision.Annotator
}

func NewAnalysisService(
	metadata repositories.MetadataRepository,
	store storage.ObjectStorage,
	annotator vision.Annotator,
) AnalysisService {
	return &analysisService{metadata: metadata, store: store, annotator: annotator}
}

// ProcessImage 是分析任务的唯一入口, 驱动元数据状态机:
// pending -> processing -> {completed, failed}。投递语义是 at-least-once,
// 终态行直接空操作, 重复投递不会产生第二次写入。
//
// 瞬时失败 (超时/5xx/传输错误) 保持 processing 并把错误交还队列退避重试;
// 永久失败立即置 failed 且不再重试; 最后一次尝试无论哪类失败都收敛到 failed
func (s *analysisService) ProcessImage(ctx context.Context, imageID uint, imageURL string, lastAttempt bool) error {
	meta, err := s.metadata.GetByImageID(ctx, nil, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 图片已被删除, 任务按成功确认丢弃
			log.Printf("分析任务丢弃: image_id=%d 元数据不存在", imageID)
			return nil
		}
		return s.transient(ctx, imageID, lastAttempt, fmt.Errorf("查询元数据失败: %w", err))
	}
	if meta.IsTerminal() {
		return nil
	}

	// 先落 processing 再做任何 I/O, 进程崩溃后状态可观测而不是一直停在 pending
	if err := s.metadata.MarkProcessing(ctx, nil, imageID); err != nil {
		return s.transient(ctx, imageID, lastAttempt, fmt.Errorf("更新处理状态失败: %w", err))
	}

	if _, err := url.ParseRequestURI(imageURL); err != nil {
		return s.permanent(ctx, imageID, fmt.Errorf("拉取引用无效: %v", err))
	}

	data, err := s.store.FetchBytes(ctx, imageURL)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return s.permanent(ctx, imageID, fmt.Errorf("拉取图片失败: %v", err))
		}
		return s.transient(ctx, imageID, lastAttempt, fmt.Errorf("拉取图片失败: %w", err))
	}

	if _, err := decodeImage(data); err != nil {
		return s.permanent(ctx, imageID, fmt.Errorf("图片无法解码: %v", err))
	}

	analysis, err := s.annotator.Annotate(ctx, data)
	if err != nil {
		return s.transient(ctx, imageID, lastAttempt, fmt.Errorf("图像标注失败: %w", err))
	}

	if err := s.metadata.CompleteAnalysis(ctx, nil, imageID, analysis.Description, analysis.Tags, analysis.Colors); err != nil {
		return s.transient(ctx, imageID, lastAttempt, fmt.Errorf("保存分析结果失败: %w", err))
	}

	log.Printf("图像分析完成: image_id=%d tags=%d", imageID, len(analysis.Tags))
	return nil
}

func (s *analysisService) permanent(ctx context.Context, imageID uint, cause error) error {
	s.markFailed(ctx, imageID)
	return fmt.Errorf("%v: %w", cause, ErrPermanentAnalysis)
}

func (s *analysisService) transient(ctx context.Context, imageID uint, lastAttempt bool, cause error) error {
	if lastAttempt {
		// 重试次数耗尽, 收敛到 failed
		s.markFailed(ctx, imageID)
	}
	return cause
}

func (s *analysisService) markFailed(ctx context.Context, imageID uint) {
	if err := s.metadata.MarkFailed(ctx, nil, imageID); err != nil {
		log.Printf("标记分析失败状态出错: image_id=%d: %v", imageID, err)
	}
}
