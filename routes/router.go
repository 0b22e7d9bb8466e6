package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/config"
	"github.com/qaforge/qaforge/controllers"
	"github.com/qaforge/qaforge/engine"
	"github.com/qaforge/qaforge/middleware"
	"github.com/qaforge/qaforge/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, dispatcher *engine.Dispatcher, searcher controllers.Searcher) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, utils.Renderer{})
	postController := controllers.NewPostController(db, dispatcher, searcher)
	voteController := controllers.NewVoteController(db, dispatcher)
	awardController := controllers.NewAwardController(db, dispatcher)
	noteController := controllers.NewNoteController(db, dispatcher)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/:id", postController.GetPost)
	postsGroup.GET("/:id/revisions", postController.ListRevisions)

	api.GET("/search", postController.SearchPosts)
	api.GET("/tags", postController.ListTags)
	api.GET("/badges", awardController.ListBadges)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/users/:id/awards", awardController.ListUserAwards)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/answers", postController.CreateAnswer)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.POST("/posts/:id/moderate", postController.Moderate)
	protected.POST("/posts/:id/votes", voteController.CastVote)
	protected.DELETE("/posts/:id/votes", voteController.RemoveVote)
	protected.POST("/awards", awardController.GrantAward)
	protected.DELETE("/awards/:id", awardController.RevokeAward)
	protected.GET("/notes", noteController.ListNotes)
	protected.GET("/notes/unread-count", noteController.UnreadCount)
	protected.POST("/notes/:id/read", noteController.MarkRead)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
