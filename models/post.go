package models

import (
	"strings"
	"time"
)

// Post types.
const (
	PostQuestion = iota + 1
	PostAnswer
	PostComment
	PostGuide
	PostBlog
	PostNews
	PostOther
)

// Post statuses. Deletion is a status transition; post rows are never removed.
const (
	StatusOpen       = 100
	StatusClosed     = 200
	StatusDeleted    = 300
	StatusUnanswered = 400
	StatusAccepted   = 500
)

// ContentOnly reports whether a post type carries content but no title or
// tags of its own (answers and comments inherit context from the parent).
func ContentOnly(postType int) bool {
	return postType == PostAnswer || postType == PostComment
}

// ValidPostType reports whether t is one of the recognized post types.
func ValidPostType(t int) bool {
	return t >= PostQuestion && t <= PostOther
}

// Post is a content item: question, answer, comment or standalone article.
// The parent/root references form the thread tree; root always resolves to
// the thread's originating post and defaults to the post itself.
type Post struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AuthorID       uint      `gorm:"index;not null" json:"author_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	HTML           string    `gorm:"type:text" json:"html"`
	Title          string    `gorm:"size:200" json:"title"`
	Slug           string    `gorm:"size:200" json:"slug"`
	TagVal         string    `gorm:"size:200" json:"tag_val"`
	Views          int       `gorm:"default:0" json:"views"`
	Score          int       `gorm:"default:0" json:"score"`
	Status         int       `gorm:"default:100" json:"status"`
	Type           int       `gorm:"index;not null" json:"type"`
	RootID         *uint     `gorm:"index" json:"root_id"`
	ParentID       *uint     `gorm:"index" json:"parent_id"`
	CommentCount   int       `gorm:"default:0" json:"comment_count"`
	AnswerCount    int       `gorm:"default:0" json:"answer_count"`
	Accepted       bool      `gorm:"default:false" json:"accepted"`
	AnswerAccepted bool      `gorm:"default:false" json:"answer_accepted"`
	CreationDate   time.Time `gorm:"index" json:"creation_date"`
	LastEditDate   time.Time `json:"lastedit_date"`
	LastEditUserID uint      `json:"lastedit_user_id"`
	TouchDate      time.Time `gorm:"index" json:"touch_date"`
	Author         User      `gorm:"foreignKey:AuthorID" json:"author"`
}

// DisplayTitle decorates the title with the moderation state.
func (p *Post) DisplayTitle() string {
	switch p.Status {
	case StatusDeleted:
		return p.Title + " [deleted]"
	case StatusClosed:
		return p.Title + " [closed]"
	}
	return p.Title
}

// TagNames splits the canonical tag string into lowercase tag names.
func (p *Post) TagNames() []string {
	var names []string
	for _, field := range strings.Fields(p.TagVal) {
		names = append(names, strings.ToLower(field))
	}
	return names
}

// IndexableText is the text handed to the search index collaborator.
func (p *Post) IndexableText() string {
	if ContentOnly(p.Type) {
		return p.Content
	}
	return p.Title + "\n" + p.Content
}

// PostRevision is one immutable snapshot transition in a post's edit history.
// Rows are only appended, never updated or deleted.
type PostRevision struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	PostID   uint      `gorm:"index;not null" json:"post_id"`
	Diff     string    `gorm:"type:text" json:"diff"`
	Content  string    `gorm:"type:text" json:"content"`
	AuthorID uint      `gorm:"not null" json:"author_id"`
	Date     time.Time `gorm:"index" json:"date"`
}
