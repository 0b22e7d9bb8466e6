package models

import "time"

// Note types.
const (
	NoteUser = iota + 1
	NoteModerator
	NoteAdmin
	NoteAward
	NoteSite
)

// Note is a notification record. After creation only the unread flag changes.
type Note struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	SenderID uint      `gorm:"not null" json:"sender_id"`
	TargetID uint      `gorm:"index;not null" json:"target_id"`
	PostID   *uint     `json:"post_id"`
	Content  string    `gorm:"size:5000" json:"content"`
	HTML     string    `gorm:"size:5000" json:"html"`
	Date     time.Time `gorm:"not null" json:"date"`
	Unread   bool      `gorm:"default:true" json:"unread"`
	Type     int       `gorm:"default:1" json:"type"`
}
