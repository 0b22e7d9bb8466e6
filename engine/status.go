package engine

import "github.com/qaforge/qaforge/models"

// ModAction is an explicit moderation input. Actions always take precedence
// over the derived-status recomputation within the same transaction.
type ModAction int

const (
	ModNone ModAction = iota
	ModClose
	ModReopen
	ModDelete
	ModUndelete
)

func (a ModAction) String() string {
	switch a {
	case ModClose:
		return "close"
	case ModReopen:
		return "reopen"
	case ModDelete:
		return "delete"
	case ModUndelete:
		return "undelete"
	}
	return "none"
}

// recomputeStatus derives a post's status from its answer and acceptance
// state. Only questions carry the unanswered/accepted distinction; any other
// type recomputes to plain open.
func recomputeStatus(post *models.Post) {
	if post.Type != models.PostQuestion {
		post.Status = models.StatusOpen
		return
	}
	switch {
	case post.AnswerCount == 0:
		post.Status = models.StatusUnanswered
	case post.AnswerAccepted:
		post.Status = models.StatusAccepted
	default:
		post.Status = models.StatusOpen
	}
}

// refreshStatus reapplies the derivation rule when answer_count or the
// acceptance flag changed, unless an explicit moderation state is in effect.
func refreshStatus(post *models.Post) {
	if post.Status == models.StatusClosed || post.Status == models.StatusDeleted {
		return
	}
	recomputeStatus(post)
}
