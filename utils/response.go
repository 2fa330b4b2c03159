package utils

import "github.com/gin-gonic/gin"

type PaginationData struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func Success(c *gin.Context, data gin.H) {
	payload := gin.H{"success": true}
	for k, v := range data {
		payload[k] = v
	}
	c.JSON(200, payload)
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, gin.H{"success": false, "error": message, "data": data})
}
