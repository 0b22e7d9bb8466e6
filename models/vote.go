package models

import "time"

// Vote types.
const (
	VoteUp = iota + 1
	VoteDown
	VoteAccept
	VoteFavorite
)

// ValidVoteType reports whether t is one of the recognized vote types.
func ValidVoteType(t int) bool {
	return t >= VoteUp && t <= VoteFavorite
}

// Vote is one user's vote of a given type on a post. The unique index is a
// storage-level backstop against duplicate votes of the same type; the
// up/down exclusivity rule is enforced by the dispatcher.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_votes_author_post_type" json:"author_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_votes_author_post_type" json:"post_id"`
	Type      int       `gorm:"not null;uniqueIndex:idx_votes_author_post_type" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
