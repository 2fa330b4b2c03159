package handlers

import (
	"net/http"

	"pixvault/services"
	"pixvault/utils"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	user, err := getServices().Auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"user": user})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	out, err := getServices().Auth.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"token": out.Token, "user": out.User})
}

func GetProfile(c *gin.Context) {
	profile, err := getServices().Auth.GetProfile(c.Request.Context(), c.GetUint("user_id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"user": profile})
}
