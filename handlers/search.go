package handlers

import (
	"strconv"

	"pixvault/utils"

	"github.com/gin-gonic/gin"
)

func TextSearch(c *gin.Context) {
	query := c.Query("q")
	mode := c.DefaultQuery("mode", "strict")
	page, limit := parsePageParams(c)

	out, err := getServices().Search.TextSearch(c.Request.Context(), currentUserID(c), query, mode, page, limit)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{
		"query":      out.Query,
		"images":     out.Images,
		"pagination": out.Pagination,
	})
}

func SimilarSearch(c *gin.Context) {
	imageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	views, err := getServices().Search.SimilarSearch(c.Request.Context(), currentUserID(c), imageID, limit)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"images": views})
}

func ColorSearch(c *gin.Context) {
	views, err := getServices().Search.ColorSearch(c.Request.Context(), currentUserID(c), c.Query("color"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"images": views})
}
