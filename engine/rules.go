// Package engine maintains the derived state of the platform: vote and award
// side effects, post status, denormalized counters and the revision log. All
// mutations run through the Dispatcher, one transaction per lifecycle event.
package engine

import "github.com/qaforge/qaforge/models"

// Ledger rules: the fixed numeric side effects of each vote type. These are
// configuration, not logic; an absent entry means a delta of zero.
var (
	postScore = map[int]int{
		models.VoteUp:       1,
		models.VoteDown:     -1,
		models.VoteFavorite: 2,
	}

	authorRep = map[int]int{
		models.VoteUp:     10,
		models.VoteDown:   -2,
		models.VoteAccept: 15,
	}

	voterRep = map[int]int{
		models.VoteDown:   -1,
		models.VoteAccept: 2,
	}

	// opposingVotes maps the mutually exclusive vote pairs. A user never
	// holds both sides on the same post.
	opposingVotes = map[int]int{
		models.VoteUp:   models.VoteDown,
		models.VoteDown: models.VoteUp,
	}
)

// badgeColumn maps a badge tier to the profile counter it feeds.
func badgeColumn(tier int) string {
	switch tier {
	case models.BadgeSilver:
		return "silver_badges"
	case models.BadgeGold:
		return "gold_badges"
	default:
		return "bronze_badges"
	}
}
