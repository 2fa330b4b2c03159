package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"

	"pixvault/config"
	"pixvault/models"
	"pixvault/repositories"
	"pixvault/storage"
	"pixvault/utils"
)

const defaultSimilarLimit = 12

var (
	nonWordSplit = regexp.MustCompile(`\W+`)
	hexColor     = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

type TextSearchOutput struct {
	Query      string               `json:"query"`
	Images     []ImageView          `json:"images"`
	Pagination utils.PaginationData `json:"pagination"`
}

type SimilarView struct {
	ImageView
	Similarity float64 `json:"similarity"`
}

type SearchService interface {
	TextSearch(ctx context.Context, userID uint, query string, mode string, page int, limit int) (TextSearchOutput, error)
	SimilarSearch(ctx context.Context, userID uint, imageID uint, limit int) ([]SimilarView, error)
	ColorSearch(ctx context.Context, userID uint, color string) ([]ImageView, error)
}

type searchService struct {
	images repositories.ImageRepository
	store  storage.ObjectStorage
}

func NewSearchService(images repositories.ImageRepository, store storage.ObjectStorage) SearchService {
	return &searchService{images: images, store: store}
}

// TextSearch 匹配集合大小在过滤前未知, 所以先过滤全量再排序分页
func (s *searchService) TextSearch(ctx context.Context, userID uint, query string, mode string, page int, limit int) (TextSearchOutput, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 2 {
		return TextSearchOutput{}, newAppError(http.StatusBadRequest, "搜索词至少需要2个字符", nil)
	}
	if mode != "loose" {
		mode = "strict"
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > config.AppConfig.Pagination.MaxPageSize {
		limit = config.AppConfig.Pagination.DefaultPageSize
	}

	all, err := s.images.ListAllByUser(ctx, nil, userID)
	if err != nil {
		return TextSearchOutput{}, newAppError(http.StatusInternalServerError, "搜索失败", err)
	}

	queryWords := strings.Fields(query)
	matched := make([]models.Image, 0)
	for _, img := range all {
		if img.Metadata == nil {
			continue
		}
		var ok bool
		if mode == "loose" {
			ok = matchesLoose(img.Metadata, query)
		} else {
			ok = matchesStrict(img.Metadata, queryWords)
		}
		if ok {
			matched = append(matched, img)
		}
	}

	// ListAllByUser 已按上传时间倒序返回
	total := int64(len(matched))
	offset := (page - 1) * limit
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	pageItems := matched[offset:end]

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages == 0 {
		totalPages = 1
	}

	return TextSearchOutput{
		Query:  query,
		Images: s.buildSearchViews(ctx, pageItems),
		Pagination: utils.PaginationData{
			Page:       page,
			PageSize:   limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// matchesLoose 大小写不敏感的子串匹配, 描述或任一标签命中即可
func matchesLoose(meta *models.ImageMetadata, query string) bool {
	if strings.Contains(strings.ToLower(meta.Description), query) {
		return true
	}
	for _, tag := range meta.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// matchesStrict 整词匹配: 查询的每个词都要作为独立单词出现在描述里,
// 或者全部出现在同一个标签里。标签只按空白切词, 与描述的 \W+ 切词不同,
// 这是沿用既有行为的刻意差异
func matchesStrict(meta *models.ImageMetadata, queryWords []string) bool {
	if len(queryWords) == 0 {
		return false
	}

	if meta.Description != "" {
		descWords := toWordSet(nonWordSplit.Split(strings.ToLower(meta.Description), -1))
		if containsAll(descWords, queryWords) {
			return true
		}
	}

	for _, tag := range meta.Tags {
		tagWords := toWordSet(strings.Fields(strings.ToLower(tag)))
		if containsAll(tagWords, queryWords) {
			return true
		}
	}
	return false
}

func toWordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func containsAll(set map[string]bool, words []string) bool {
	for _, w := range words {
		if !set[w] {
			return false
		}
	}
	return true
}

func (s *searchService) SimilarSearch(ctx context.Context, userID uint, imageID uint, limit int) ([]SimilarView, error) {
	if limit < 1 {
		limit = defaultSimilarLimit
	}

	source, err := s.images.GetByIDAndUser(ctx, nil, imageID, userID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFound("源图片不存在")
		}
		return nil, newAppError(http.StatusInternalServerError, "相似搜索失败", err)
	}

	var sourceTags, sourceColors []string
	if source.Metadata != nil {
		sourceTags = source.Metadata.Tags
		sourceColors = source.Metadata.Colors
	}

	all, err := s.images.ListAllByUser(ctx, nil, userID)
	if err != nil {
		return nil, newAppError(http.StatusInternalServerError, "相似搜索失败", err)
	}

	type scored struct {
		img   models.Image
		score float64
	}
	candidates := make([]scored, 0, len(all))
	for _, img := range all {
		if img.ID == imageID || img.Metadata == nil {
			continue
		}
		score := similarityScore(sourceTags, sourceColors, img.Metadata.Tags, img.Metadata.Colors)
		if score > 0 {
			candidates = append(candidates, scored{img: img, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	images := make([]models.Image, 0, len(candidates))
	for _, c := range candidates {
		images = append(images, c.img)
	}
	views := s.buildSearchViews(ctx, images)

	out := make([]SimilarView, 0, len(candidates))
	for i, c := range candidates {
		out = append(out, SimilarView{ImageView: views[i], Similarity: c.score})
	}
	return out, nil
}

// similarityScore = 0.7 * 标签 Jaccard + 0.3 * 颜色重合率, 值域 [0,1]
func similarityScore(sourceTags, sourceColors, tags, colors []string) float64 {
	return 0.7*tagJaccard(sourceTags, tags) + 0.3*colorOverlap(sourceColors, colors)
}

func tagJaccard(a, b []string) float64 {
	union := make(map[string]bool, len(a)+len(b))
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
		union[t] = true
	}
	intersection := 0
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		union[t] = true
		if setB[t] && !seen[t] {
			intersection++
			seen[t] = true
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

// colorOverlap 分母是源图颜色数而非并集, 与标签的 Jaccard 刻意不同
func colorOverlap(source, other []string) float64 {
	if len(source) == 0 {
		return 0
	}
	otherSet := make(map[string]bool, len(other))
	for _, c := range other {
		otherSet[c] = true
	}
	matched := 0
	for _, c := range source {
		if otherSet[c] {
			matched++
		}
	}
	return float64(matched) / float64(len(source))
}

// ColorSearch 精确的大小写敏感匹配: 存储的颜色列表必须包含完全相同的字符串
func (s *searchService) ColorSearch(ctx context.Context, userID uint, color string) ([]ImageView, error) {
	if !hexColor.MatchString(color) {
		return nil, newAppError(http.StatusBadRequest, "颜色格式必须是 #RRGGBB", nil)
	}

	all, err := s.images.ListAllByUser(ctx, nil, userID)
	if err != nil {
		return nil, newAppError(http.StatusInternalServerError, "颜色搜索失败", err)
	}

	matched := make([]models.Image, 0)
	for _, img := range all {
		if img.Metadata == nil {
			continue
		}
		if img.Metadata.Colors.Contains(color) {
			matched = append(matched, img)
		}
	}

	return s.buildSearchViews(ctx, matched), nil
}

func (s *searchService) buildSearchViews(ctx context.Context, list []models.Image) []ImageView {
	paths := make([]string, 0, len(list))
	for _, img := range list {
		if img.ThumbnailPath != "" {
			paths = append(paths, img.ThumbnailPath)
		}
	}
	urlMap := s.store.BulkSignedURL(ctx, paths, signedURLExpire())

	views := make([]ImageView, 0, len(list))
	for _, img := range list {
		views = append(views, ImageView{
			ID:            img.ID,
			Filename:      img.Filename,
			OriginalPath:  img.OriginalPath,
			ThumbnailPath: img.ThumbnailPath,
			UploadedAt:    img.CreatedAt,
			ThumbnailURL:  urlMap[img.ThumbnailPath],
			Metadata:      img.Metadata,
		})
	}
	return views
}
