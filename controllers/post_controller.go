package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/engine"
	"github.com/qaforge/qaforge/models"
	"github.com/qaforge/qaforge/utils"
)

// Searcher answers full text queries against the post index. May be nil when
// indexing is disabled.
type Searcher interface {
	Search(query string, limit int) ([]uint, error)
}

// PostController exposes post lifecycle operations. All derived-state work
// happens in the dispatcher; the controller only shapes requests and caches.
type PostController struct {
	db         *gorm.DB
	dispatcher *engine.Dispatcher
	searcher   Searcher
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, dispatcher *engine.Dispatcher, searcher Searcher) *PostController {
	return &PostController{db: db, dispatcher: dispatcher, searcher: searcher}
}

var postTypeNames = map[string]int{
	"question": models.PostQuestion,
	"guide":    models.PostGuide,
	"blog":     models.PostBlog,
	"news":     models.PostNews,
	"other":    models.PostOther,
}

// CreatePost creates a titled post (question, guide, blog, news or other).
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required,min=1"`
		Content string `json:"content" binding:"required"`
		Type    string `json:"type"`
		Tags    string `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	postType, ok := postTypeNames[strings.ToLower(strings.TrimSpace(req.Type))]
	if req.Type == "" {
		postType, ok = models.PostQuestion, true
	}
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid post type")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{
		AuthorID: userID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		TagVal:   req.Tags,
		Type:     postType,
	}
	if err := p.dispatcher.CreatePost(&post); err != nil {
		utils.EngineError(ctx, 42020, err)
		return
	}
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"post": post})
}

// CreateAnswer creates an answer under a question.
func (p *PostController) CreateAnswer(ctx *gin.Context) {
	p.createChild(ctx, models.PostAnswer)
}

// CreateComment creates a comment under any post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	p.createChild(ctx, models.PostComment)
}

func (p *PostController) createChild(ctx *gin.Context, postType int) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	parentID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{
		AuthorID: userID,
		Content:  req.Content,
		Type:     postType,
		ParentID: &parentID,
	}
	if err := p.dispatcher.CreatePost(&post); err != nil {
		utils.EngineError(ctx, 42022, err)
		return
	}
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(parentID)))
	utils.Success(ctx, gin.H{"post": post})
}

// GetPost returns a post with its live answers and comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid post id")
		return
	}
	// views are relevance metadata; bump before the cached read
	_ = p.dispatcher.BumpViews(postID)

	cacheKey := "cache:post:detail:" + strconv.Itoa(int(postID))
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var post models.Post
	if err := p.db.Preload("Author").First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load post")
		return
	}

	var children []models.Post
	err := p.db.Preload("Author").
		Where("parent_id = ? AND status <> ?", post.ID, models.StatusDeleted).
		Order("accepted DESC, score DESC, creation_date ASC").
		Find(&children).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load replies")
		return
	}

	payload := gin.H{"post": post, "children": children, "title": post.DisplayTitle()}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 10*time.Minute)
	utils.Success(ctx, payload)
}

// ListPosts returns paginated titled posts, optionally filtered by type or tag.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	tag := strings.ToLower(strings.TrimSpace(ctx.Query("tag")))
	typeFilter := strings.ToLower(strings.TrimSpace(ctx.Query("type")))

	cacheKey := fmt.Sprintf("cache:posts:list:type=%s:tag=%s:page=%d:size=%d", typeFilter, tag, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	query := p.db.Preload("Author").
		Where("parent_id IS NULL AND status <> ?", models.StatusDeleted).
		Order("touch_date DESC")
	if postType, ok := postTypeNames[typeFilter]; ok && typeFilter != "" {
		query = query.Where("type = ?", postType)
	}
	if tag != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", tag)
	}

	var total int64
	if err := query.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to count posts")
		return
	}
	var posts []models.Post
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to list posts")
		return
	}

	payload := gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// UpdatePost edits a post through the dispatcher so the revision log and tag
// counts stay consistent.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content" binding:"required"`
		Tags    string `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid request payload")
		return
	}
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40026, "invalid post id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
		return
	}
	if post.AuthorID != userID && !hasModeratorRole(ctx, p.db) {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only update your own posts")
		return
	}

	updated, err := p.dispatcher.EditPost(postID, userID, req.Title, req.Content, req.Tags)
	if err != nil {
		utils.EngineError(ctx, 42026, err)
		return
	}
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	utils.Success(ctx, gin.H{"post": updated})
}

// DeletePost retires a post. Authors may delete their own posts; everything
// else is a moderator action.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40027, "invalid post id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		return
	}
	if post.AuthorID != userID && !hasModeratorRole(ctx, p.db) {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	if _, err := p.dispatcher.DeletePost(postID, userID); err != nil {
		utils.EngineError(ctx, 42027, err)
		return
	}
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// Moderate applies close/reopen/delete/undelete. Moderators only.
func (p *PostController) Moderate(ctx *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40028, "invalid request payload")
		return
	}
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40029, "invalid post id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if !hasModeratorRole(ctx, p.db) {
		utils.Error(ctx, http.StatusForbidden, 40303, "moderator role required")
		return
	}

	var action engine.ModAction
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "close":
		action = engine.ModClose
	case "reopen":
		action = engine.ModReopen
	case "delete":
		action = engine.ModDelete
	case "undelete":
		action = engine.ModUndelete
	default:
		utils.Error(ctx, http.StatusBadRequest, 40030, "unknown moderation action")
		return
	}

	post, err := p.dispatcher.Moderate(postID, userID, action)
	if err != nil {
		utils.EngineError(ctx, 42030, err)
		return
	}
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	utils.Success(ctx, gin.H{"post": post})
}

// ListRevisions returns the ordered edit history of a post.
func (p *PostController) ListRevisions(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid post id")
		return
	}
	var revisions []models.PostRevision
	err := p.db.Where("post_id = ?", postID).
		Order("date ASC, id ASC").Find(&revisions).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load revisions")
		return
	}
	utils.Success(ctx, gin.H{"revisions": revisions})
}

// ListTags returns tags ordered by usage. Tags with no live posts are kept;
// their count is zero until a post uses them again.
func (p *PostController) ListTags(ctx *gin.Context) {
	cacheKey := "cache:tags:list"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}
	var tags []models.Tag
	if err := p.db.Order("count DESC, name ASC").Find(&tags).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to list tags")
		return
	}
	payload := gin.H{"tags": tags}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 10*time.Minute)
	utils.Success(ctx, payload)
}

// SearchPosts answers a full text query from the best-effort index.
func (p *PostController) SearchPosts(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("q"))
	if query == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "missing query")
		return
	}
	if p.searcher == nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50330, "search is disabled")
		return
	}
	ids, err := p.searcher.Search(query, 50)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "search failed")
		return
	}
	var posts []models.Post
	if len(ids) > 0 {
		err = p.db.Preload("Author").
			Where("id IN ? AND status <> ?", ids, models.StatusDeleted).
			Find(&posts).Error
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load results")
			return
		}
	}
	utils.Success(ctx, gin.H{"items": posts})
}
