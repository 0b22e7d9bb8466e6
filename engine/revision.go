package engine

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qaforge/qaforge/models"
)

// revisioned reports whether edits to this post type are recorded in the
// revision log. Comments and one-off content are not versioned.
func revisioned(postType int) bool {
	return postType == models.PostQuestion || postType == models.PostAnswer
}

// createRevision appends a revision when the post's snapshot differs from the
// most recent recorded one. Re-saves with no semantic change write nothing.
func createRevision(tx *gorm.DB, post *models.Post) error {
	prev := ""
	var last models.PostRevision
	err := tx.Where("post_id = ?", post.ID).Order("date DESC, id DESC").First(&last).Error
	switch {
	case err == nil:
		prev = last.Content
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	content := Combine(post)
	if content == prev {
		return nil
	}
	diff, err := unifiedDiff(prev, content)
	if err != nil {
		return err
	}
	rev := models.PostRevision{
		PostID:   post.ID,
		Diff:     diff,
		Content:  content,
		AuthorID: post.LastEditUserID,
		Date:     post.LastEditDate,
	}
	return tx.Create(&rev).Error
}
