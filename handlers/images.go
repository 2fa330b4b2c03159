package handlers

import (
	"net/http"
	"strconv"

	"pixvault/utils"

	"github.com/gin-gonic/gin"
)

func currentUserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, "无效的图片ID")
		return 0, false
	}
	return uint(id), true
}

func parsePageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

// UploadImages 批量上传, 表单字段名为 images
func UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "解析上传表单失败")
		return
	}
	files := form.File["images"]

	out, err := getServices().Upload.UploadImages(c.Request.Context(), currentUserID(c), files)
	if respondServiceError(c, err) {
		return
	}
	// 整批全败时仍是 200, success 标志由逐文件结果决定
	utils.Success(c, gin.H{"success": out.Success, "results": out.Results})
}

func ListImages(c *gin.Context) {
	page, limit := parsePageParams(c)

	out, err := getServices().Image.ListImages(c.Request.Context(), currentUserID(c), page, limit)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{
		"images":     out.Images,
		"pagination": out.Pagination,
	})
}

func GetImage(c *gin.Context) {
	imageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := getServices().Image.GetImage(c.Request.Context(), currentUserID(c), imageID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"image": view})
}

type UpdateTagsRequest struct {
	Tags *[]string `json:"tags"`
}

func UpdateTags(c *gin.Context) {
	imageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Tags == nil {
		utils.Error(c, http.StatusBadRequest, "tags 必须是字符串数组")
		return
	}

	tags, err := getServices().Image.UpdateTags(c.Request.Context(), currentUserID(c), imageID, *req.Tags)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"tags": tags})
}

func DeleteImage(c *gin.Context) {
	imageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := getServices().Image.DeleteImage(c.Request.Context(), currentUserID(c), imageID); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "图片已删除"})
}
