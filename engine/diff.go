package engine

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/qaforge/qaforge/models"
)

// Combine renders the canonical snapshot of a post for revision diffing.
// Title and tags are part of the snapshot so title- or tag-only edits are
// captured in the history too.
func Combine(post *models.Post) string {
	return fmt.Sprintf("TITLE:%s\n%s\nTAGS:%s", post.Title, post.Content, post.TagVal)
}

// unifiedDiff computes a unified line diff between two snapshots. An empty
// result means the snapshots are identical.
func unifiedDiff(prev, next string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       difflib.SplitLines(prev),
		B:       difflib.SplitLines(next),
		Context: 3,
	})
}
