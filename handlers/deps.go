package handlers

import (
	"log"
	"net/http"

	"pixvault/services"
	"pixvault/utils"

	"github.com/gin-gonic/gin"
)

var appServices *services.Container

func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*services.AppError); ok {
		if appErr.Data != nil {
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		} else {
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		return true
	}
	log.Printf("未分类的服务错误: %v", err)
	utils.Error(c, http.StatusInternalServerError, "服务器内部错误")
	return true
}
