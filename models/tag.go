package models

// Tag is a shared label on titled posts. Count equals the number of
// non-deleted posts referencing the tag and is maintained by the ledger.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Count int    `gorm:"default:0" json:"count"`
}

// PostTag links a post to one of its tags.
type PostTag struct {
	PostID uint `gorm:"primaryKey" json:"post_id"`
	TagID  uint `gorm:"primaryKey" json:"tag_id"`
}
