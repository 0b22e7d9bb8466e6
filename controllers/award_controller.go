package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/engine"
	"github.com/qaforge/qaforge/models"
	"github.com/qaforge/qaforge/utils"
)

// AwardController lists badges and grants or revokes awards.
type AwardController struct {
	db         *gorm.DB
	dispatcher *engine.Dispatcher
}

// NewAwardController creates a new AwardController instance.
func NewAwardController(db *gorm.DB, dispatcher *engine.Dispatcher) *AwardController {
	return &AwardController{db: db, dispatcher: dispatcher}
}

// ListBadges returns the badge catalogue. Secret badges are hidden from
// everyone except moderators.
func (a *AwardController) ListBadges(ctx *gin.Context) {
	query := a.db.Order("tier DESC, name ASC")
	if !hasModeratorRole(ctx, a.db) {
		query = query.Where("secret = ?", false)
	}
	var badges []models.Badge
	if err := query.Find(&badges).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list badges")
		return
	}
	utils.Success(ctx, gin.H{"badges": badges})
}

// GrantAward gives a badge to a user. Moderators only.
func (a *AwardController) GrantAward(ctx *gin.Context) {
	var req struct {
		BadgeID uint `json:"badge_id" binding:"required"`
		UserID  uint `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	senderID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if !hasModeratorRole(ctx, a.db) {
		utils.Error(ctx, http.StatusForbidden, 40310, "moderator role required")
		return
	}

	award, err := a.dispatcher.GrantAward(req.BadgeID, req.UserID, senderID)
	if err != nil {
		utils.EngineError(ctx, 42050, err)
		return
	}
	utils.Success(ctx, gin.H{"award": award})
}

// RevokeAward takes an award back and reverses its counters. Moderators only.
func (a *AwardController) RevokeAward(ctx *gin.Context) {
	awardID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid award id")
		return
	}
	if !hasModeratorRole(ctx, a.db) {
		utils.Error(ctx, http.StatusForbidden, 40310, "moderator role required")
		return
	}

	if err := a.dispatcher.RevokeAward(awardID); err != nil {
		utils.EngineError(ctx, 42051, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "award revoked"})
}

// ListUserAwards returns the awards a user has earned.
func (a *AwardController) ListUserAwards(ctx *gin.Context) {
	userID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid user id")
		return
	}
	var awards []models.Award
	err := a.db.Preload("Badge").
		Where("user_id = ?", userID).
		Order("date DESC").Find(&awards).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list awards")
		return
	}
	utils.Success(ctx, gin.H{"awards": awards})
}
