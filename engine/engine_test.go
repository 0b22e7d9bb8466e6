package engine

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qaforge/qaforge/models"
)

// plainRenderer passes markup through untouched so tests can assert on exact
// stored content.
type plainRenderer struct{}

func (plainRenderer) RenderToDisplay(markup string) string { return markup }

type plainComposer struct{}

func (plainComposer) ComposeNotice(eventKind, actor, subject string) string {
	return eventKind + ": " + subject
}

// openTestDB opens an isolated in-memory database per test. The shared-cache
// URI keeps the database alive across the connections in gorm's pool.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.UserProfile{},
		&models.Post{}, &models.PostRevision{},
		&models.Vote{}, &models.Badge{}, &models.Award{},
		&models.Tag{}, &models.PostTag{}, &models.Note{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewDispatcher(db, plainRenderer{}, plainComposer{}, nil, zap.NewNop()), db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "irrelevant"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

func profileOf(t *testing.T, db *gorm.DB, userID uint) models.UserProfile {
	t.Helper()
	var profile models.UserProfile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		t.Fatalf("load profile of user %d: %v", userID, err)
	}
	return profile
}

func loadPost(t *testing.T, db *gorm.DB, postID uint) models.Post {
	t.Helper()
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		t.Fatalf("load post %d: %v", postID, err)
	}
	return post
}

func askQuestion(t *testing.T, d *Dispatcher, authorID uint, title, tags string) *models.Post {
	t.Helper()
	post := models.Post{
		AuthorID: authorID,
		Title:    title,
		Content:  "body of " + title,
		TagVal:   tags,
		Type:     models.PostQuestion,
	}
	if err := d.CreatePost(&post); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return &post
}

func answerPost(t *testing.T, d *Dispatcher, authorID, parentID uint, content string) *models.Post {
	t.Helper()
	post := models.Post{
		AuthorID: authorID,
		Content:  content,
		Type:     models.PostAnswer,
		ParentID: &parentID,
	}
	if err := d.CreatePost(&post); err != nil {
		t.Fatalf("create answer: %v", err)
	}
	return &post
}
