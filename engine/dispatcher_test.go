package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/qaforge/qaforge/models"
)

func TestCreateQuestionDefaults(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")

	question := askQuestion(t, d, author.ID, "What is idempotency?", "Theory Basics")

	got := loadPost(t, db, question.ID)
	if got.Status != models.StatusUnanswered {
		t.Errorf("status = %d, want %d", got.Status, models.StatusUnanswered)
	}
	if got.RootID == nil || *got.RootID != got.ID {
		t.Errorf("root_id = %v, want self %d", got.RootID, got.ID)
	}
	if got.Slug == "" {
		t.Error("slug not derived")
	}
	if got.LastEditUserID != author.ID {
		t.Errorf("lastedit_user_id = %d, want %d", got.LastEditUserID, author.ID)
	}

	var revisions int64
	db.Model(&models.PostRevision{}).Where("post_id = ?", question.ID).Count(&revisions)
	if revisions != 1 {
		t.Errorf("revisions after create = %d, want 1", revisions)
	}

	var tags []models.Tag
	db.Order("name").Find(&tags)
	if len(tags) != 2 || tags[0].Name != "basics" || tags[1].Name != "theory" {
		t.Fatalf("tags = %+v, want lowercased basics and theory", tags)
	}
	for _, tag := range tags {
		if tag.Count != 1 {
			t.Errorf("tag %s count = %d, want 1", tag.Name, tag.Count)
		}
	}
}

func TestCreatePostValidation(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")

	cases := []struct {
		name string
		post models.Post
	}{
		{"unknown type", models.Post{AuthorID: author.ID, Content: "x", Type: 99}},
		{"empty content", models.Post{AuthorID: author.ID, Title: "t", Type: models.PostQuestion}},
		{"missing title", models.Post{AuthorID: author.ID, Content: "x", Type: models.PostQuestion}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			post := c.post
			if err := d.CreatePost(&post); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAnswerLifecycle(t *testing.T) {
	d, db := newTestDispatcher(t)
	asker := createUser(t, db, "alice")
	answerer := createUser(t, db, "bob")
	question := askQuestion(t, d, asker.ID, "Threading", "")

	answer := answerPost(t, d, answerer.ID, question.ID, "reply body")

	got := loadPost(t, db, answer.ID)
	if got.Title != "Answer: Threading" {
		t.Errorf("derived title = %q", got.Title)
	}
	if got.RootID == nil || *got.RootID != question.ID {
		t.Errorf("root_id = %v, want %d", got.RootID, question.ID)
	}
	q := loadPost(t, db, question.ID)
	if q.AnswerCount != 1 {
		t.Errorf("answer_count = %d, want 1", q.AnswerCount)
	}
	if q.Status != models.StatusOpen {
		t.Errorf("question status = %d, want %d", q.Status, models.StatusOpen)
	}

	// the asker is a thread participant and gets an unread note
	var notes []models.Note
	db.Where("target_id = ?", asker.ID).Find(&notes)
	if len(notes) != 1 {
		t.Fatalf("notes for asker = %d, want 1", len(notes))
	}
	if !notes[0].Unread || notes[0].SenderID != answerer.ID || notes[0].Type != models.NoteUser {
		t.Errorf("note = %+v, want unread user note from answerer", notes[0])
	}
}

func TestCommentCountsWithoutRevision(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Comments", "")

	comment := models.Post{
		AuthorID: author.ID,
		Content:  "clarifying",
		Type:     models.PostComment,
		ParentID: &question.ID,
	}
	if err := d.CreatePost(&comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	q := loadPost(t, db, question.ID)
	if q.CommentCount != 1 {
		t.Errorf("comment_count = %d, want 1", q.CommentCount)
	}
	if q.AnswerCount != 0 {
		t.Errorf("answer_count = %d, want 0", q.AnswerCount)
	}
	if q.Status != models.StatusUnanswered {
		t.Errorf("question status = %d, want %d", q.Status, models.StatusUnanswered)
	}

	var revisions int64
	db.Model(&models.PostRevision{}).Where("post_id = ?", comment.ID).Count(&revisions)
	if revisions != 0 {
		t.Errorf("comment revisions = %d, want 0", revisions)
	}
}

func TestEditPostAppendsRevisionOnChange(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Versioned", "tips")

	updated, err := d.EditPost(question.ID, author.ID, "Versioned properly", "new body", "tips tricks")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Title != "Versioned properly" {
		t.Errorf("title = %q", updated.Title)
	}

	var revisions []models.PostRevision
	db.Where("post_id = ?", question.ID).Order("id").Find(&revisions)
	if len(revisions) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revisions))
	}
	if !strings.Contains(revisions[1].Diff, "Versioned properly") {
		t.Errorf("diff does not mention the new title:\n%s", revisions[1].Diff)
	}
	if revisions[1].Content != Combine(updated) {
		t.Error("revision content is not the combined snapshot")
	}

	// a save with an unchanged snapshot writes nothing
	if _, err := d.EditPost(question.ID, author.ID, "Versioned properly", "new body", "tips tricks"); err != nil {
		t.Fatalf("no-op edit: %v", err)
	}
	var count int64
	db.Model(&models.PostRevision{}).Where("post_id = ?", question.ID).Count(&count)
	if count != 2 {
		t.Errorf("revisions after no-op edit = %d, want 2", count)
	}
}

func TestEditContentOnlyKeepsTitleAndTags(t *testing.T) {
	d, db := newTestDispatcher(t)
	asker := createUser(t, db, "alice")
	answerer := createUser(t, db, "bob")
	question := askQuestion(t, d, asker.ID, "Inherited", "")
	answer := answerPost(t, d, answerer.ID, question.ID, "first draft")

	updated, err := d.EditPost(answer.ID, answerer.ID, "Ignored title", "second draft", "ignored-tag")
	if err != nil {
		t.Fatalf("edit answer: %v", err)
	}
	if updated.Title != "Answer: Inherited" {
		t.Errorf("title = %q, want derived title preserved", updated.Title)
	}
	if updated.TagVal != "" {
		t.Errorf("tag_val = %q, want empty", updated.TagVal)
	}
	if updated.Content != "second draft" {
		t.Errorf("content = %q", updated.Content)
	}
}

func TestEditPostEmptyContent(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Guarded", "")

	if _, err := d.EditPost(question.ID, author.ID, "t", "   ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestEditPostBlankTitleRejected(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Keeps its title", "tag")

	if _, err := d.EditPost(question.ID, author.ID, "   ", "new body", "tag"); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank title edit err = %v, want ErrValidation", err)
	}

	got := loadPost(t, db, question.ID)
	if got.Title != "Keeps its title" {
		t.Errorf("title = %q, want unchanged", got.Title)
	}
	if got.Slug == "" {
		t.Error("slug was blanked")
	}
	var revisions int64
	db.Model(&models.PostRevision{}).Where("post_id = ?", question.ID).Count(&revisions)
	if revisions != 1 {
		t.Errorf("revisions after rejected edit = %d, want 1", revisions)
	}
}

func TestModerationPrecedence(t *testing.T) {
	d, db := newTestDispatcher(t)
	moderator := createUser(t, db, "mod")
	asker := createUser(t, db, "alice")
	answerer := createUser(t, db, "bob")
	question := askQuestion(t, d, asker.ID, "Locked down", "")

	if _, err := d.Moderate(question.ID, moderator.ID, ModClose); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := loadPost(t, db, question.ID).Status; got != models.StatusClosed {
		t.Fatalf("status = %d, want %d", got, models.StatusClosed)
	}

	// counter changes must not override the explicit moderation state
	answerPost(t, d, answerer.ID, question.ID, "still counted")
	q := loadPost(t, db, question.ID)
	if q.AnswerCount != 1 {
		t.Errorf("answer_count = %d, want 1", q.AnswerCount)
	}
	if q.Status != models.StatusClosed {
		t.Errorf("status = %d, want still %d", q.Status, models.StatusClosed)
	}

	if _, err := d.Moderate(question.ID, moderator.ID, ModReopen); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := loadPost(t, db, question.ID).Status; got != models.StatusOpen {
		t.Errorf("status after reopen = %d, want %d", got, models.StatusOpen)
	}

	// the author was notified about each action
	var notes int64
	db.Model(&models.Note{}).
		Where("target_id = ? AND type = ?", asker.ID, models.NoteModerator).
		Count(&notes)
	if notes != 2 {
		t.Errorf("moderator notes = %d, want 2", notes)
	}
}

func TestDeleteAnswerRevertsCounters(t *testing.T) {
	d, db := newTestDispatcher(t)
	moderator := createUser(t, db, "mod")
	asker := createUser(t, db, "alice")
	answerer := createUser(t, db, "bob")
	question := askQuestion(t, d, asker.ID, "Reversible", "")
	answer := answerPost(t, d, answerer.ID, question.ID, "going away")

	if _, err := d.Moderate(answer.ID, moderator.ID, ModDelete); err != nil {
		t.Fatalf("delete answer: %v", err)
	}
	if got := loadPost(t, db, answer.ID).Status; got != models.StatusDeleted {
		t.Errorf("answer status = %d, want %d", got, models.StatusDeleted)
	}
	q := loadPost(t, db, question.ID)
	if q.AnswerCount != 0 {
		t.Errorf("answer_count after delete = %d, want 0", q.AnswerCount)
	}
	if q.Status != models.StatusUnanswered {
		t.Errorf("question status = %d, want %d", q.Status, models.StatusUnanswered)
	}

	if _, err := d.Moderate(answer.ID, moderator.ID, ModUndelete); err != nil {
		t.Fatalf("undelete answer: %v", err)
	}
	q = loadPost(t, db, question.ID)
	if q.AnswerCount != 1 {
		t.Errorf("answer_count after undelete = %d, want 1", q.AnswerCount)
	}
	if q.Status != models.StatusOpen {
		t.Errorf("question status = %d, want %d", q.Status, models.StatusOpen)
	}
}

func TestDeleteQuestionDetachesTags(t *testing.T) {
	d, db := newTestDispatcher(t)
	moderator := createUser(t, db, "mod")
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Tagged", "golang testing")

	if _, err := d.Moderate(question.ID, moderator.ID, ModDelete); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var tags []models.Tag
	db.Find(&tags)
	for _, tag := range tags {
		if tag.Count != 0 {
			t.Errorf("tag %s count = %d, want 0 after delete", tag.Name, tag.Count)
		}
	}
	var assignments int64
	db.Model(&models.PostTag{}).Where("post_id = ?", question.ID).Count(&assignments)
	if assignments != 0 {
		t.Errorf("tag assignments = %d, want 0", assignments)
	}

	if _, err := d.Moderate(question.ID, moderator.ID, ModUndelete); err != nil {
		t.Fatalf("undelete: %v", err)
	}
	db.Find(&tags)
	for _, tag := range tags {
		if tag.Count != 1 {
			t.Errorf("tag %s count = %d, want 1 after undelete", tag.Name, tag.Count)
		}
	}
}

func TestModerateConflicts(t *testing.T) {
	d, db := newTestDispatcher(t)
	moderator := createUser(t, db, "mod")
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Guard rails", "")

	if _, err := d.Moderate(question.ID, moderator.ID, ModUndelete); !errors.Is(err, ErrConflict) {
		t.Fatalf("undelete live post err = %v, want ErrConflict", err)
	}
	if _, err := d.Moderate(question.ID, moderator.ID, ModDelete); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := d.Moderate(question.ID, moderator.ID, ModDelete); !errors.Is(err, ErrConflict) {
		t.Fatalf("double delete err = %v, want ErrConflict", err)
	}
	if _, err := d.Moderate(question.ID, moderator.ID, ModClose); !errors.Is(err, ErrConflict) {
		t.Fatalf("close deleted err = %v, want ErrConflict", err)
	}
	if _, err := d.Moderate(question.ID, moderator.ID, ModReopen); !errors.Is(err, ErrConflict) {
		t.Fatalf("reopen deleted err = %v, want ErrConflict", err)
	}
}

func TestMarkNoteRead(t *testing.T) {
	d, db := newTestDispatcher(t)
	asker := createUser(t, db, "alice")
	answerer := createUser(t, db, "bob")
	question := askQuestion(t, d, asker.ID, "Inbox", "")
	answerPost(t, d, answerer.ID, question.ID, "ping")

	var note models.Note
	if err := db.Where("target_id = ?", asker.ID).First(&note).Error; err != nil {
		t.Fatalf("load note: %v", err)
	}

	// only the addressee may mark it read
	if err := d.MarkNoteRead(note.ID, answerer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign mark err = %v, want ErrNotFound", err)
	}
	if err := d.MarkNoteRead(note.ID, asker.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	db.First(&note, note.ID)
	if note.Unread {
		t.Error("note still unread")
	}

	// re-marking an already-read note is a no-op, not a missing note
	if err := d.MarkNoteRead(note.ID, asker.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if err := d.MarkNoteRead(note.ID+1000, asker.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing note err = %v, want ErrNotFound", err)
	}
}

func TestSelfDeleteNotePreRead(t *testing.T) {
	d, db := newTestDispatcher(t)
	moderator := createUser(t, db, "mod")
	author := createUser(t, db, "alice")
	own := askQuestion(t, d, author.ID, "Retracted", "")
	other := askQuestion(t, d, author.ID, "Removed by mod", "")

	if _, err := d.DeletePost(own.ID, author.ID); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	if _, err := d.Moderate(other.ID, moderator.ID, ModDelete); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}

	var notes []models.Note
	db.Where("target_id = ? AND type = ?", author.ID, models.NoteModerator).
		Order("id").Find(&notes)
	if len(notes) != 2 {
		t.Fatalf("moderator notes = %d, want 2", len(notes))
	}
	if notes[0].Unread {
		t.Error("self-delete note should be pre-read")
	}
	if !notes[1].Unread {
		t.Error("moderator-delete note should be unread")
	}
}

func TestBumpViews(t *testing.T) {
	d, db := newTestDispatcher(t)
	author := createUser(t, db, "alice")
	question := askQuestion(t, d, author.ID, "Counted", "")

	for i := 0; i < 3; i++ {
		if err := d.BumpViews(question.ID); err != nil {
			t.Fatalf("bump views: %v", err)
		}
	}
	if got := loadPost(t, db, question.ID).Views; got != 3 {
		t.Errorf("views = %d, want 3", got)
	}
}
