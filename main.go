package main

import (
	"github.com/qaforge/qaforge/config"
	"github.com/qaforge/qaforge/controllers"
	"github.com/qaforge/qaforge/engine"
	"github.com/qaforge/qaforge/models"
	"github.com/qaforge/qaforge/notegen"
	"github.com/qaforge/qaforge/routes"
	"github.com/qaforge/qaforge/search"
	"github.com/qaforge/qaforge/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{}, &models.UserProfile{},
		&models.Post{}, &models.PostRevision{},
		&models.Vote{}, &models.Badge{}, &models.Award{},
		&models.Tag{}, &models.PostTag{}, &models.Note{},
	)

	// Search indexing is best-effort and optional; the engine runs without it.
	var searchIndex engine.SearchIndex
	var searcher controllers.Searcher
	if cfg.SearchEnabled {
		idx, err := search.Open(cfg.SearchPath)
		if err != nil {
			utils.Sugar.Fatalf("failed to open search index: %v", err)
		}
		defer idx.Close()
		searchIndex = idx
		searcher = idx
	}

	dispatcher := engine.NewDispatcher(db, utils.Renderer{}, notegen.New(), searchIndex, utils.Logger)
	r := routes.SetupRouter(db, dispatcher, searcher)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
