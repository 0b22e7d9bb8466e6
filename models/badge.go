package models

import "time"

// Badge tiers.
const (
	BadgeBronze = iota
	BadgeSilver
	BadgeGold
)

// Badge is an awardable distinction. Count tracks live awards referencing it
// and is mutated only through the ledger.
type Badge struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:200" json:"description"`
	Tier        int    `gorm:"not null" json:"tier"`
	Unique      bool   `gorm:"default:false" json:"unique"` // unique badges may be earned only once
	Secret      bool   `gorm:"default:false" json:"secret"` // secret badges are not listed publicly
	Count       int    `gorm:"default:0" json:"count"`
}

// Award records a badge granted to a user. Not a join table: non-unique
// badges may be earned multiple times.
type Award struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	BadgeID uint      `gorm:"index;not null" json:"badge_id"`
	UserID  uint      `gorm:"index;not null" json:"user_id"`
	Date    time.Time `json:"date"`
	Badge   Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
}
