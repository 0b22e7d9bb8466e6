package engine

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qaforge/qaforge/models"
)

// The apply/revert ledger. Every function here takes a direction of +1 or -1
// and must be invoked exactly once per lifecycle event, inside the event's
// transaction. Counter deltas are commutative but not idempotent; the
// exactly-once guarantee belongs to the Dispatcher.

// applyVote applies (dir=+1) or reverts (dir=-1) the numeric side effects of
// a vote: post score, author reputation, voter reputation and, for accept
// votes, the acceptance flags feeding the status machine.
func applyVote(tx *gorm.DB, vote *models.Vote, dir int) error {
	var post models.Post
	if err := tx.First(&post, vote.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("vote target post %d: %w", vote.PostID, ErrNotFound)
		}
		return err
	}

	if delta := authorRep[vote.Type]; delta != 0 {
		if err := bumpScore(tx, post.AuthorID, dir*delta); err != nil {
			return err
		}
	}
	if delta := voterRep[vote.Type]; delta != 0 {
		if err := bumpScore(tx, vote.AuthorID, dir*delta); err != nil {
			return err
		}
	}
	if delta := postScore[vote.Type]; delta != 0 {
		err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("score", gorm.Expr("score + ?", dir*delta)).Error
		if err != nil {
			return err
		}
	}

	if vote.Type == models.VoteAccept {
		return applyAccept(tx, &post, dir > 0)
	}
	return nil
}

// applyAccept toggles the acceptance flags on the answer and its question and
// rederives the question's status from the new flag.
func applyAccept(tx *gorm.DB, answer *models.Post, accepted bool) error {
	if answer.ParentID == nil {
		return fmt.Errorf("accept on post %d which has no parent: %w", answer.ID, ErrValidation)
	}
	err := tx.Model(&models.Post{}).Where("id = ?", answer.ID).
		UpdateColumn("accepted", accepted).Error
	if err != nil {
		return err
	}

	var question models.Post
	if err := tx.First(&question, *answer.ParentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("parent post %d: %w", *answer.ParentID, ErrNotFound)
		}
		return err
	}
	question.AnswerAccepted = accepted
	refreshStatus(&question)
	return tx.Model(&models.Post{}).Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"answer_accepted": accepted,
			"status":          question.Status,
		}).Error
}

// applyAward applies or reverts the badge counters for an award: the
// recipient's tier counter and the badge's global count.
func applyAward(tx *gorm.DB, award *models.Award, badge *models.Badge, dir int) error {
	column := badgeColumn(badge.Tier)
	err := tx.Model(&models.UserProfile{}).Where("user_id = ?", award.UserID).
		UpdateColumn(column, gorm.Expr(column+" + ?", dir)).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Badge{}).Where("id = ?", badge.ID).
		UpdateColumn("count", gorm.Expr("count + ?", dir)).Error
}

// applyPost adjusts the parent's denormalized counters when an answer or
// comment enters or leaves the live set, and rederives the parent status.
func applyPost(tx *gorm.DB, post *models.Post, dir int) error {
	if post.ParentID == nil {
		return nil
	}
	switch post.Type {
	case models.PostAnswer:
		var parent models.Post
		if err := tx.First(&parent, *post.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("parent post %d: %w", *post.ParentID, ErrNotFound)
			}
			return err
		}
		parent.AnswerCount += dir
		refreshStatus(&parent)
		return tx.Model(&models.Post{}).Where("id = ?", parent.ID).
			Updates(map[string]interface{}{
				"answer_count": parent.AnswerCount,
				"status":       parent.Status,
			}).Error
	case models.PostComment:
		return tx.Model(&models.Post{}).Where("id = ?", *post.ParentID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", dir)).Error
	}
	return nil
}

// bumpScore adds a reputation delta to a user's profile.
func bumpScore(tx *gorm.DB, userID uint, delta int) error {
	return tx.Model(&models.UserProfile{}).Where("user_id = ?", userID).
		UpdateColumn("score", gorm.Expr("score + ?", delta)).Error
}

// syncTags rebuilds the post's tag assignments from its tag string, keeping
// Tag.Count in step. Content-only posts carry no tags.
func syncTags(tx *gorm.DB, post *models.Post) error {
	if models.ContentOnly(post.Type) {
		return nil
	}
	if err := detachTags(tx, post); err != nil {
		return err
	}
	for _, name := range post.TagNames() {
		var tag models.Tag
		err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error
		if err != nil {
			return err
		}
		if err := tx.Create(&models.PostTag{PostID: post.ID, TagID: tag.ID}).Error; err != nil {
			return err
		}
		err = tx.Model(&models.Tag{}).Where("id = ?", tag.ID).
			UpdateColumn("count", gorm.Expr("count + ?", 1)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// detachTags removes the post's tag assignments and decrements the counts.
// Used on its own when a post leaves the live set.
func detachTags(tx *gorm.DB, post *models.Post) error {
	var current []models.PostTag
	if err := tx.Where("post_id = ?", post.ID).Find(&current).Error; err != nil {
		return err
	}
	for _, pt := range current {
		err := tx.Model(&models.Tag{}).Where("id = ?", pt.TagID).
			UpdateColumn("count", gorm.Expr("count - ?", 1)).Error
		if err != nil {
			return err
		}
	}
	return tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error
}

// lockForUpdate takes a row lock so concurrent mutations of the same
// aggregate serialize. SQLite has no FOR UPDATE; its single writer already
// serializes transactions.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
