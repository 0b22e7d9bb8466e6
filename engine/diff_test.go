package engine

import (
	"strings"
	"testing"

	"github.com/qaforge/qaforge/models"
)

func TestCombineSnapshot(t *testing.T) {
	post := models.Post{Title: "A title", Content: "line one\nline two", TagVal: "go sql"}
	got := Combine(&post)
	want := "TITLE:A title\nline one\nline two\nTAGS:go sql"
	if got != want {
		t.Errorf("Combine = %q, want %q", got, want)
	}
}

func TestUnifiedDiff(t *testing.T) {
	same, err := unifiedDiff("a\nb\n", "a\nb\n")
	if err != nil {
		t.Fatalf("diff identical: %v", err)
	}
	if same != "" {
		t.Errorf("diff of identical snapshots = %q, want empty", same)
	}

	diff, err := unifiedDiff("a\nb\n", "a\nc\n")
	if err != nil {
		t.Fatalf("diff changed: %v", err)
	}
	if !strings.Contains(diff, "-b") || !strings.Contains(diff, "+c") {
		t.Errorf("diff missing change markers:\n%s", diff)
	}
}

func TestRevisionLogReplaysEverySnapshot(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	editor := createUser(t, db, "bob")
	question := askQuestion(t, d, author.ID, "Draft", "go")

	edits := []struct {
		editor uint
		title  string
		body   string
		tags   string
	}{
		{author.ID, "Draft v2", "expanded body", "go"},
		{editor.ID, "Draft v2", "expanded body\nwith a second line", "go sql"},
		{author.ID, "Final", "expanded body\nwith a second line", "go sql"},
	}
	want := []string{Combine(&models.Post{Title: "Draft", Content: "body of Draft", TagVal: "go"})}
	for _, e := range edits {
		updated, err := d.EditPost(question.ID, e.editor, e.title, e.body, e.tags)
		if err != nil {
			t.Fatalf("edit to %q: %v", e.title, err)
		}
		want = append(want, Combine(updated))
	}

	var revisions []models.PostRevision
	db.Where("post_id = ?", question.ID).Order("date ASC, id ASC").Find(&revisions)
	if len(revisions) != len(want) {
		t.Fatalf("revisions = %d, want %d", len(revisions), len(want))
	}

	// the stored contents are exactly the snapshot sequence, and replaying
	// each stored diff over the previous snapshot yields the next one
	prev := ""
	for i, rev := range revisions {
		if rev.Content != want[i] {
			t.Errorf("revision %d content = %q, want %q", i, rev.Content, want[i])
		}
		diff, err := unifiedDiff(prev, rev.Content)
		if err != nil {
			t.Fatalf("diff snapshot %d: %v", i, err)
		}
		if rev.Diff != diff {
			t.Errorf("revision %d diff mismatch:\ngot:\n%s\nwant:\n%s", i, rev.Diff, diff)
		}
		prev = rev.Content
	}
}

func TestTitleOnlyEditProducesRevision(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Before", "tag")

	if _, err := d.EditPost(question.ID, author.ID, "After", "body of Before", "tag"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	var revisions []models.PostRevision
	db.Where("post_id = ?", question.ID).Order("id").Find(&revisions)
	if len(revisions) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revisions))
	}
	if !strings.Contains(revisions[1].Diff, "-TITLE:Before") ||
		!strings.Contains(revisions[1].Diff, "+TITLE:After") {
		t.Errorf("diff does not capture the title change:\n%s", revisions[1].Diff)
	}
}
