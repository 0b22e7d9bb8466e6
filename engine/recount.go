package engine

import (
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/models"
)

// Recount rebuilds every derived counter from live rows in one transaction.
// Bulk import paths load entities with zeroed counters and call this once,
// instead of being trusted with raw counter deltas that bypass the ledger.
func Recount(db *gorm.DB) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := recountChildren(tx); err != nil {
			return err
		}
		if err := recountTags(tx); err != nil {
			return err
		}
		return recountBadges(tx)
	})
	return kinded(err)
}

type groupCount struct {
	ID uint
	N  int
}

// recountChildren rebuilds answer_count and comment_count from live child rows.
func recountChildren(tx *gorm.DB) error {
	for _, c := range []struct {
		postType int
		column   string
	}{
		{models.PostAnswer, "answer_count"},
		{models.PostComment, "comment_count"},
	} {
		if err := tx.Model(&models.Post{}).Where(c.column+" <> 0").
			UpdateColumn(c.column, 0).Error; err != nil {
			return err
		}
		var rows []groupCount
		err := tx.Model(&models.Post{}).
			Select("parent_id AS id, COUNT(*) AS n").
			Where("parent_id IS NOT NULL AND type = ? AND status <> ?", c.postType, models.StatusDeleted).
			Group("parent_id").Scan(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			err := tx.Model(&models.Post{}).Where("id = ?", row.ID).
				UpdateColumn(c.column, row.N).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// recountTags rebuilds Tag.Count from assignments of non-deleted posts.
func recountTags(tx *gorm.DB) error {
	if err := tx.Model(&models.Tag{}).Where("count <> 0").
		UpdateColumn("count", 0).Error; err != nil {
		return err
	}
	var rows []groupCount
	err := tx.Model(&models.PostTag{}).
		Select("post_tags.tag_id AS id, COUNT(*) AS n").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("posts.status <> ?", models.StatusDeleted).
		Group("post_tags.tag_id").Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		err := tx.Model(&models.Tag{}).Where("id = ?", row.ID).
			UpdateColumn("count", row.N).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// recountBadges rebuilds Badge.Count and the per-tier profile counters from
// live award rows.
func recountBadges(tx *gorm.DB) error {
	if err := tx.Model(&models.Badge{}).Where("count <> 0").
		UpdateColumn("count", 0).Error; err != nil {
		return err
	}
	var rows []groupCount
	err := tx.Model(&models.Award{}).
		Select("badge_id AS id, COUNT(*) AS n").
		Group("badge_id").Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		err := tx.Model(&models.Badge{}).Where("id = ?", row.ID).
			UpdateColumn("count", row.N).Error
		if err != nil {
			return err
		}
	}

	for tier, column := range map[int]string{
		models.BadgeBronze: "bronze_badges",
		models.BadgeSilver: "silver_badges",
		models.BadgeGold:   "gold_badges",
	} {
		if err := tx.Model(&models.UserProfile{}).Where(column+" <> 0").
			UpdateColumn(column, 0).Error; err != nil {
			return err
		}
		var tierRows []groupCount
		err := tx.Model(&models.Award{}).
			Select("awards.user_id AS id, COUNT(*) AS n").
			Joins("JOIN badges ON badges.id = awards.badge_id").
			Where("badges.tier = ?", tier).
			Group("awards.user_id").Scan(&tierRows).Error
		if err != nil {
			return err
		}
		for _, row := range tierRows {
			err := tx.Model(&models.UserProfile{}).Where("user_id = ?", row.ID).
				UpdateColumn(column, row.N).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}
