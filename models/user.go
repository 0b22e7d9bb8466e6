package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User account types.
const (
	UserNormal = iota + 1
	UserModerator
	UserAdmin
)

// User statuses.
const (
	UserActive    = 10
	UserSuspended = 20
)

// User represents a registered account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Username     string      `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string      `gorm:"size:255" json:"email"`
	PasswordHash string      `gorm:"size:255" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Profile      UserProfile `json:"profile"`
}

// UserProfile is the denormalized per-user aggregate. Score and the badge
// counters are mutated only through the ledger; they always equal the sum of
// currently applied reputation deltas and the count of live awards per tier.
type UserProfile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName  string    `gorm:"size:35;index" json:"display_name"`
	UUID         string    `gorm:"size:64;uniqueIndex" json:"uuid"`
	Type         int       `gorm:"default:1" json:"type"`
	Status       int       `gorm:"default:10" json:"status"`
	Score        int       `gorm:"default:0" json:"score"`
	BronzeBadges int       `gorm:"default:0" json:"bronze_badges"`
	SilverBadges int       `gorm:"default:0" json:"silver_badges"`
	GoldBadges   int       `gorm:"default:0" json:"gold_badges"`
	AboutMe      string    `gorm:"type:text" json:"about_me"`
	AboutMeHTML  string    `gorm:"type:text" json:"about_me_html"`
	Location     string    `gorm:"size:255" json:"location"`
	Website      string    `gorm:"size:100" json:"website"`
	LastVisited  time.Time `json:"last_visited"`
}

// AfterCreate provisions the 1:1 profile for a new account.
func (u *User) AfterCreate(tx *gorm.DB) error {
	profile := UserProfile{
		UserID:      u.ID,
		DisplayName: u.Username,
		UUID:        uuid.NewString(),
		Type:        UserNormal,
		Status:      UserActive,
		LastVisited: time.Now(),
	}
	return tx.Create(&profile).Error
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// HasModeratorRole reports whether the profile may perform moderation actions.
func (p *UserProfile) HasModeratorRole() bool {
	return p.Type == UserModerator || p.Type == UserAdmin
}
