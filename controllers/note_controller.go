package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/engine"
	"github.com/qaforge/qaforge/models"
	"github.com/qaforge/qaforge/utils"
)

// NoteController serves the caller's notification inbox.
type NoteController struct {
	db         *gorm.DB
	dispatcher *engine.Dispatcher
}

// NewNoteController creates a new NoteController instance.
func NewNoteController(db *gorm.DB, dispatcher *engine.Dispatcher) *NoteController {
	return &NoteController{db: db, dispatcher: dispatcher}
}

// ListNotes returns the caller's notes, newest first.
func (n *NoteController) ListNotes(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := n.db.Where("target_id = ?", userID)
	if ctx.Query("unread") == "true" {
		query = query.Where("unread = ?", true)
	}

	var total int64
	if err := query.Model(&models.Note{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count notes")
		return
	}
	var notes []models.Note
	err := query.Order("date DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&notes).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list notes")
		return
	}
	utils.Success(ctx, gin.H{
		"items": notes,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

// UnreadCount returns how many unread notes the caller has.
func (n *NoteController) UnreadCount(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var count int64
	err := n.db.Model(&models.Note{}).
		Where("target_id = ? AND unread = ?", userID, true).
		Count(&count).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to count notes")
		return
	}
	utils.Success(ctx, gin.H{"unread": count})
}

// MarkRead marks one of the caller's notes as read.
func (n *NoteController) MarkRead(ctx *gin.Context) {
	noteID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid note id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := n.dispatcher.MarkNoteRead(noteID, userID); err != nil {
		utils.EngineError(ctx, 42060, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "note marked read"})
}
