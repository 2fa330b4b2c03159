package services

import (
	"context"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"pixvault/config"
	"pixvault/models"
	"pixvault/queue"
	"pixvault/repositories"
	"pixvault/storage"
)

type UploadResult struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	ImageID  uint   `json:"imageId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type UploadBatchOutput struct {
	Success bool           `json:"success"`
	Results []UploadResult `json:"results"`
}

type UploadService interface {
	UploadImages(ctx context.Context, userID uint, files []*multipart.FileHeader) (UploadBatchOutput, error)
}

type uploadService struct {
	images   repositories.ImageRepository
	metadata repositories.MetadataRepository
	store    storage.ObjectStorage
	jobs     queue.Enqueuer
}

func NewUploadService(
	images repositories.ImageRepository,
	metadata repositories.MetadataRepository,
	store storage.ObjectStorage,
	jobs queue.Enqueuer,
) UploadService {
	return &uploadService{images: images, metadata: metadata, store: store, jobs: jobs}
}

// UploadImages 批量上传。每个文件是一条独立 saga, 单个文件失败不影响其它文件;
// 只要有一个成功, 整批就按成功返回, 逐文件结果在 Results 里
func (s *uploadService) UploadImages(ctx context.Context, userID uint, files []*multipart.FileHeader) (UploadBatchOutput, error) {
	if len(files) == 0 {
		return UploadBatchOutput{}, newAppError(http.StatusBadRequest, "没有上传任何文件", nil)
	}
	if len(files) > config.AppConfig.Upload.MaxFilesPerBatch {
		return UploadBatchOutput{}, newAppError(http.StatusBadRequest, "单次最多上传10个文件", nil)
	}

	out := UploadBatchOutput{Results: make([]UploadResult, 0, len(files))}
	for _, header := range files {
		result := s.uploadOne(ctx, userID, header)
		if result.Success {
			out.Success = true
		}
		out.Results = append(out.Results, result)
	}
	return out, nil
}

// saga 步骤: 校验 -> 变换 -> 传原图 -> 传缩略图 -> 插 Image 行 -> 插元数据行 -> 入队。
// 任何一步失败都按逆序补偿已提交的步骤, 补偿只针对当前文件
func (s *uploadService) uploadOne(ctx context.Context, userID uint, header *multipart.FileHeader) UploadResult {
	fail := func(msg string) UploadResult {
		return UploadResult{Filename: header.Filename, Success: false, Error: msg}
	}

	if header.Size > config.AppConfig.Upload.MaxFileSize {
		return fail("文件大小超出限制")
	}
	mimeType := header.Header.Get("Content-Type")
	if !isMimeTypeAllowed(mimeType) {
		return fail("不支持的文件类型")
	}

	file, err := header.Open()
	if err != nil {
		return fail("读取文件失败")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fail("读取文件失败")
	}

	img, err := decodeImage(data)
	if err != nil {
		return fail("无效的图片文件")
	}

	optimized, err := optimizeImage(img)
	if err != nil {
		return fail("处理图片失败")
	}
	thumbnail, err := makeThumbnail(img)
	if err != nil {
		return fail("生成缩略图失败")
	}

	storageName := generateStorageName(header.Filename)
	originalKey := ownerKey(userID, storageName)
	thumbKey := ownerKey(userID, thumbnailStorageName(storageName))

	var (
		originalPath  string
		thumbnailPath string
		imageID       uint
		metaInserted  bool
	)
	compensate := func() {
		// 补偿是尽力而为: 失败只记日志, 不再向上抛
		if metaInserted {
			if err := s.metadata.DeleteByImageID(ctx, nil, imageID); err != nil {
				log.Printf("补偿失败: 删除元数据行 image_id=%d: %v", imageID, err)
			}
		}
		if imageID != 0 {
			if err := s.images.DeleteByIDAndUser(ctx, nil, imageID, userID); err != nil {
				log.Printf("补偿失败: 删除图片行 id=%d: %v", imageID, err)
			}
		}
		if thumbnailPath != "" {
			if err := s.store.Delete(ctx, thumbnailPath); err != nil {
				log.Printf("补偿失败: 删除缩略图对象 %s: %v", thumbnailPath, err)
			}
		}
		if originalPath != "" {
			if err := s.store.Delete(ctx, originalPath); err != nil {
				log.Printf("补偿失败: 删除原图对象 %s: %v", originalPath, err)
			}
		}
	}

	originalPath, err = s.store.Put(ctx, originalKey, optimized, mimeType)
	if err != nil {
		log.Printf("上传原图失败 %s: %v", header.Filename, err)
		compensate()
		return fail("上传原图失败")
	}

	thumbnailPath, err = s.store.Put(ctx, thumbKey, thumbnail, "image/jpeg")
	if err != nil {
		log.Printf("上传缩略图失败 %s: %v", header.Filename, err)
		compensate()
		return fail("上传缩略图失败")
	}

	imageRecord := models.Image{
		UserID:        userID,
		Filename:      header.Filename,
		OriginalPath:  originalPath,
		ThumbnailPath: thumbnailPath,
	}
	if err := s.images.Create(ctx, nil, &imageRecord); err != nil {
		log.Printf("写入图片记录失败 %s: %v", header.Filename, err)
		compensate()
		return fail("保存图片记录失败")
	}
	imageID = imageRecord.ID

	meta := models.ImageMetadata{
		ImageID:            imageID,
		UserID:             userID,
		Tags:               models.StringList{},
		Colors:             models.StringList{},
		AIProcessingStatus: models.AIStatusPending,
	}
	if err := s.metadata.Create(ctx, nil, &meta); err != nil {
		log.Printf("写入元数据记录失败 %s: %v", header.Filename, err)
		compensate()
		return fail("保存元数据失败")
	}
	metaInserted = true

	expire := time.Duration(config.AppConfig.Storage.SignedURLExpire) * time.Second
	signedURL, err := s.store.SignedURL(ctx, originalPath, expire)
	if err != nil {
		log.Printf("生成分析任务签名 URL 失败 %s: %v", header.Filename, err)
		compensate()
		return fail("创建分析任务失败")
	}

	if _, err := s.jobs.EnqueueAnalysis(ctx, queue.AnalysisPayload{ImageID: imageID, ImageURL: signedURL}); err != nil {
		log.Printf("分析任务入队失败 %s: %v", header.Filename, err)
		compensate()
		return fail("创建分析任务失败")
	}

	return UploadResult{Filename: header.Filename, Success: true, ImageID: imageID}
}
