package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/engine"
	"github.com/qaforge/qaforge/models"
	"github.com/qaforge/qaforge/utils"
)

// VoteController casts and retracts votes through the dispatcher.
type VoteController struct {
	db         *gorm.DB
	dispatcher *engine.Dispatcher
}

// NewVoteController creates a new VoteController instance.
func NewVoteController(db *gorm.DB, dispatcher *engine.Dispatcher) *VoteController {
	return &VoteController{db: db, dispatcher: dispatcher}
}

var voteTypeNames = map[string]int{
	"up":       models.VoteUp,
	"down":     models.VoteDown,
	"accept":   models.VoteAccept,
	"favorite": models.VoteFavorite,
}

func parseVoteType(raw string) (int, bool) {
	t, ok := voteTypeNames[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// CastVote records a vote on a post and settles the score and reputation
// deltas in the same transaction.
func (v *VoteController) CastVote(ctx *gin.Context) {
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid post id")
		return
	}
	voteType, ok := parseVoteType(req.Type)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40042, "unknown vote type")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	vote, err := v.dispatcher.CastVote(userID, postID, voteType)
	if err != nil {
		utils.EngineError(ctx, 42040, err)
		return
	}
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	utils.Success(ctx, gin.H{"vote": vote})
}

// RemoveVote retracts a previously cast vote, reversing its deltas.
func (v *VoteController) RemoveVote(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid post id")
		return
	}
	voteType, ok := parseVoteType(ctx.Query("type"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40044, "unknown vote type")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := v.dispatcher.RemoveVote(userID, postID, voteType); err != nil {
		utils.EngineError(ctx, 42044, err)
		return
	}
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	utils.Success(ctx, gin.H{"message": "vote removed"})
}
