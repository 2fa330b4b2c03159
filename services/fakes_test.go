package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"pixvault/config"
	"pixvault/models"
	"pixvault/queue"
	"pixvault/vision"
)

func setupTestConfig() {
	config.AppConfig = &config.Config{
		Storage: config.StorageConfig{SignedURLExpire: 3600},
		Upload: config.UploadConfig{
			MaxFileSize:      10 << 20,
			MaxFilesPerBatch: 10,
			AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp"},
			MaxDimension:     2400,
			JPEGQuality:      90,
		},
		Thumbnail:  config.ThumbnailConfig{Size: 300, Quality: 85},
		Pagination: config.PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100},
	}
}

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeImageRepo struct {
	images  map[uint]models.Image
	nextID  uint
	deleted []uint

	createErr error
	deleteErr error
	listErr   error
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: make(map[uint]models.Image), nextID: 1}
}

func (r *fakeImageRepo) Create(_ context.Context, _ *gorm.DB, image *models.Image) error {
	if r.createErr != nil {
		return r.createErr
	}
	if image.ID == 0 {
		image.ID = r.nextID
		r.nextID++
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	r.images[image.ID] = *image
	return nil
}

func (r *fakeImageRepo) GetByIDAndUser(_ context.Context, _ *gorm.DB, imageID uint, userID uint, _ bool) (models.Image, error) {
	img, ok := r.images[imageID]
	if !ok || img.UserID != userID {
		return models.Image{}, gorm.ErrRecordNotFound
	}
	return img, nil
}

func (r *fakeImageRepo) CountByUser(_ context.Context, _ *gorm.DB, userID uint) (int64, error) {
	var n int64
	for _, img := range r.images {
		if img.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeImageRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uint, offset int, limit int) ([]models.Image, error) {
	all, err := r.ListAllByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ListAllByUser 与真实仓库一致, 按上传时间倒序
func (r *fakeImageRepo) ListAllByUser(_ context.Context, _ *gorm.DB, userID uint) ([]models.Image, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]models.Image, 0, len(r.images))
	for _, img := range r.images {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeImageRepo) DeleteByIDAndUser(_ context.Context, _ *gorm.DB, imageID uint, userID uint) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	img, ok := r.images[imageID]
	if !ok || img.UserID != userID {
		return nil
	}
	delete(r.images, imageID)
	r.deleted = append(r.deleted, imageID)
	return nil
}

type fakeMetadataRepo struct {
	rows    map[uint]models.ImageMetadata
	deleted []uint

	createErr         error
	markProcessingErr error
	completeErr       error
	markFailedErr     error
}

func newFakeMetadataRepo() *fakeMetadataRepo {
	return &fakeMetadataRepo{rows: make(map[uint]models.ImageMetadata)}
}

func (r *fakeMetadataRepo) Create(_ context.Context, _ *gorm.DB, meta *models.ImageMetadata) error {
	if r.createErr != nil {
		return r.createErr
	}
	if meta.ID == 0 {
		meta.ID = meta.ImageID
	}
	r.rows[meta.ImageID] = *meta
	return nil
}

func (r *fakeMetadataRepo) GetByImageID(_ context.Context, _ *gorm.DB, imageID uint) (models.ImageMetadata, error) {
	meta, ok := r.rows[imageID]
	if !ok {
		return models.ImageMetadata{}, gorm.ErrRecordNotFound
	}
	return meta, nil
}

func (r *fakeMetadataRepo) GetByImageIDAndUser(_ context.Context, _ *gorm.DB, imageID uint, userID uint) (models.ImageMetadata, error) {
	meta, ok := r.rows[imageID]
	if !ok || meta.UserID != userID {
		return models.ImageMetadata{}, gorm.ErrRecordNotFound
	}
	return meta, nil
}

func (r *fakeMetadataRepo) ReplaceTags(_ context.Context, _ *gorm.DB, imageID uint, tags []string) error {
	meta, ok := r.rows[imageID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	meta.Tags = append(models.StringList{}, tags...)
	r.rows[imageID] = meta
	return nil
}

func (r *fakeMetadataRepo) MarkProcessing(_ context.Context, _ *gorm.DB, imageID uint) error {
	if r.markProcessingErr != nil {
		return r.markProcessingErr
	}
	meta, ok := r.rows[imageID]
	if !ok || meta.IsTerminal() {
		return nil
	}
	meta.AIProcessingStatus = models.AIStatusProcessing
	r.rows[imageID] = meta
	return nil
}

func (r *fakeMetadataRepo) CompleteAnalysis(_ context.Context, _ *gorm.DB, imageID uint, description string, tags []string, colors []string) error {
	if r.completeErr != nil {
		return r.completeErr
	}
	meta, ok := r.rows[imageID]
	if !ok || meta.IsTerminal() {
		return nil
	}
	meta.Description = description
	meta.Tags = append(models.StringList{}, tags...)
	meta.Colors = append(models.StringList{}, colors...)
	meta.AIProcessingStatus = models.AIStatusCompleted
	r.rows[imageID] = meta
	return nil
}

func (r *fakeMetadataRepo) MarkFailed(_ context.Context, _ *gorm.DB, imageID uint) error {
	if r.markFailedErr != nil {
		return r.markFailedErr
	}
	meta, ok := r.rows[imageID]
	if !ok || meta.IsTerminal() {
		return nil
	}
	meta.AIProcessingStatus = models.AIStatusFailed
	r.rows[imageID] = meta
	return nil
}

func (r *fakeMetadataRepo) DeleteByImageID(_ context.Context, _ *gorm.DB, imageID uint) error {
	delete(r.rows, imageID)
	r.deleted = append(r.deleted, imageID)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	putErr       error
	signedURLErr error
	fetchErr     error
	fetchData    []byte
	deleteErr    error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return "", fmt.Errorf("object %s already exists", key)
	}
	s.objects[key] = data
	return key, nil
}

func (s *fakeStorage) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return data, nil
}

func (s *fakeStorage) Delete(_ context.Context, path string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *fakeStorage) deletedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func (s *fakeStorage) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	if s.signedURLErr != nil {
		return "", s.signedURLErr
	}
	return "https://signed.example/" + path, nil
}

func (s *fakeStorage) BulkSignedURL(_ context.Context, paths []string, _ time.Duration) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		out[p] = "https://signed.example/" + p
	}
	return out
}

func (s *fakeStorage) FetchBytes(context.Context, string) ([]byte, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.fetchData, nil
}

type fakeEnqueuer struct {
	enqueued   []queue.AnalysisPayload
	enqueueErr error
}

func (q *fakeEnqueuer) EnqueueAnalysis(_ context.Context, payload queue.AnalysisPayload) (string, error) {
	if q.enqueueErr != nil {
		return "", q.enqueueErr
	}
	q.enqueued = append(q.enqueued, payload)
	return fmt.Sprintf("task-%d", len(q.enqueued)), nil
}

type fakeAnnotator struct {
	analysis vision.Analysis
	err      error
	calls    int
}

func (a *fakeAnnotator) Annotate(context.Context, []byte) (vision.Analysis, error) {
	a.calls++
	if a.err != nil {
		return vision.Analysis{}, a.err
	}
	return a.analysis, nil
}
