package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/models"
	"github.com/qaforge/qaforge/utils"
)

// AuthController manages registration, login and profile access.
type AuthController struct {
	db     *gorm.DB
	render Renderer
}

// Renderer is the display-form collaborator used where controllers persist
// user markup directly (profile text).
type Renderer interface {
	RenderToDisplay(markup string) string
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, render Renderer) *AuthController {
	return &AuthController{db: db, render: render}
}

// Register creates a new account; the profile row is provisioned by the
// model hook.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	username := strings.TrimSpace(req.Username)
	var existing models.User
	err := a.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		utils.Error(ctx, http.StatusConflict, 40910, "username already taken")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to check username")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
		return
	}
	user := models.User{Username: username, Email: req.Email, PasswordHash: hash}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to create user")
		return
	}
	utils.Success(ctx, gin.H{"id": user.ID, "username": user.Username})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, 7*24*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue token")
		return
	}
	a.db.Model(&models.UserProfile{}).Where("user_id = ?", user.ID).
		UpdateColumn("last_visited", time.Now())
	utils.Success(ctx, gin.H{"token": token, "user": gin.H{"id": user.ID, "username": user.Username}})
}

// Me returns the authenticated user with profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.Preload("Profile").First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile edits the caller's own profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name" binding:"omitempty,max=35"`
		AboutMe     string `json:"about_me"`
		Location    string `json:"location" binding:"omitempty,max=255"`
		Website     string `json:"website" binding:"omitempty,max=100"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var profile models.UserProfile
	if err := a.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40411, "profile not found")
		return
	}
	if req.DisplayName != "" {
		profile.DisplayName = utils.Sanitize(strings.TrimSpace(req.DisplayName))
	}
	profile.AboutMe = req.AboutMe
	profile.AboutMeHTML = a.render.RenderToDisplay(req.AboutMe)
	profile.Location = req.Location
	profile.Website = req.Website
	if err := a.db.Save(&profile).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to update profile")
		return
	}
	utils.Success(ctx, gin.H{"profile": profile})
}

// GetUserPublic returns public profile information for any user.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	userID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid user id")
		return
	}
	var profile models.UserProfile
	if err := a.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40412, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"profile": gin.H{
		"user_id":       profile.UserID,
		"display_name":  profile.DisplayName,
		"score":         profile.Score,
		"bronze_badges": profile.BronzeBadges,
		"silver_badges": profile.SilverBadges,
		"gold_badges":   profile.GoldBadges,
		"about_me_html": profile.AboutMeHTML,
		"location":      profile.Location,
		"website":       profile.Website,
	}})
}
