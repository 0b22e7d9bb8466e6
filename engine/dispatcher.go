package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qaforge/qaforge/models"
)

// Renderer converts user markup into sanitized display text. The engine
// treats it as an opaque pure function.
type Renderer interface {
	RenderToDisplay(markup string) string
}

// NoticeComposer produces notification text for an event. Composition is
// external; the engine owns only the Note record itself.
type NoticeComposer interface {
	ComposeNotice(eventKind, actor, subject string) string
}

// SearchIndex is notified of post text changes after the event transaction
// commits. Failures are logged, never surfaced.
type SearchIndex interface {
	Index(postID uint, text string, create bool) error
	Delete(postID uint) error
}

// Dispatcher sequences validation, persistence and derived-state work for
// every lifecycle event. Each exported method runs as one atomic transaction;
// the ledger, status machine and revision log execute inside it, best-effort
// collaborators after it.
type Dispatcher struct {
	db      *gorm.DB
	render  Renderer
	notices NoticeComposer
	search  SearchIndex
	log     *zap.Logger
}

// NewDispatcher wires the engine components once at service construction.
// search may be nil when indexing is disabled.
func NewDispatcher(db *gorm.DB, render Renderer, notices NoticeComposer, search SearchIndex, log *zap.Logger) *Dispatcher {
	return &Dispatcher{db: db, render: render, notices: notices, search: search, log: log}
}

// CreatePost validates, normalizes and persists a new post, applies parent
// counters, syncs tags, seeds the revision log and notifies thread
// participants, all in one transaction.
func (d *Dispatcher) CreatePost(post *models.Post) error {
	if err := d.normalizePost(post); err != nil {
		return err
	}
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if post.ParentID != nil {
			var parent models.Post
			if err := tx.First(&parent, *post.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("parent post %d: %w", *post.ParentID, ErrNotFound)
				}
				return err
			}
			if post.RootID == nil {
				rootID := parent.ID
				if parent.RootID != nil {
					rootID = *parent.RootID
				}
				post.RootID = &rootID
			}
			if post.Title == "" {
				post.Title = typeName(post.Type) + ": " + parent.Title
				post.Slug = slugify(post.Title)
			}
		}
		refreshStatus(post)

		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if post.RootID == nil {
			// root is never null after creation; default to self
			post.RootID = &post.ID
			if err := tx.Model(post).UpdateColumn("root_id", post.ID).Error; err != nil {
				return err
			}
		}
		if err := applyPost(tx, post, +1); err != nil {
			return err
		}
		if err := syncTags(tx, post); err != nil {
			return err
		}
		if revisioned(post.Type) {
			if err := createRevision(tx, post); err != nil {
				return err
			}
		}
		return d.notifyThread(tx, post)
	})
	if err != nil {
		return kinded(err)
	}
	d.notifySearch(post, true)
	return nil
}

// EditPost updates the post content in place and appends a revision when the
// snapshot changed. Content-only posts keep their derived title and tags.
func (d *Dispatcher) EditPost(postID, editorID uint, title, content, tags string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("post content is empty: %w", ErrValidation)
	}
	var post models.Post
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("post %d: %w", postID, ErrNotFound)
			}
			return err
		}
		post.Content = content
		if !models.ContentOnly(post.Type) {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("post title is empty: %w", ErrValidation)
			}
			post.Title = strings.TrimSpace(title)
			post.TagVal = tags
			post.Slug = slugify(post.Title)
		}
		now := time.Now()
		post.HTML = d.render.RenderToDisplay(post.Content)
		post.LastEditUserID = editorID
		post.LastEditDate = now
		post.TouchDate = now
		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		// a deleted post holds no live tag assignments until undeleted
		if post.Status != models.StatusDeleted {
			if err := syncTags(tx, &post); err != nil {
				return err
			}
		}
		if revisioned(post.Type) {
			return createRevision(tx, &post)
		}
		return nil
	})
	if err != nil {
		return nil, kinded(err)
	}
	d.notifySearch(&post, false)
	return &post, nil
}

// DeletePost retires a post through the status machine. Rows are never
// physically removed.
func (d *Dispatcher) DeletePost(postID, actorID uint) (*models.Post, error) {
	return d.Moderate(postID, actorID, ModDelete)
}

// Moderate applies an explicit moderation action. The status change and the
// notification to the author persist atomically, or neither does.
func (d *Dispatcher) Moderate(postID, actorID uint, action ModAction) (*models.Post, error) {
	var post models.Post
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("post %d: %w", postID, ErrNotFound)
			}
			return err
		}
		wasDeleted := post.Status == models.StatusDeleted

		switch action {
		case ModClose:
			if wasDeleted {
				return fmt.Errorf("cannot close deleted post %d, undelete first: %w", postID, ErrConflict)
			}
			post.Status = models.StatusClosed
		case ModReopen:
			if wasDeleted {
				return fmt.Errorf("cannot reopen deleted post %d, undelete first: %w", postID, ErrConflict)
			}
			recomputeStatus(&post)
		case ModDelete:
			if wasDeleted {
				return fmt.Errorf("post %d is already deleted: %w", postID, ErrConflict)
			}
			post.Status = models.StatusDeleted
			// the post leaves the live set: revert its counter and tag effects
			if err := applyPost(tx, &post, -1); err != nil {
				return err
			}
			if err := detachTags(tx, &post); err != nil {
				return err
			}
		case ModUndelete:
			if !wasDeleted {
				return fmt.Errorf("post %d is not deleted: %w", postID, ErrConflict)
			}
			recomputeStatus(&post)
			if err := applyPost(tx, &post, +1); err != nil {
				return err
			}
			if err := syncTags(tx, &post); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown moderation action %d: %w", action, ErrValidation)
		}

		post.TouchDate = time.Now()
		if err := tx.Save(&post).Error; err != nil {
			return err
		}

		actor, err := displayName(tx, actorID)
		if err != nil {
			return err
		}
		text := d.notices.ComposeNotice(action.String(), actor, post.Title)
		// authors acting on their own posts get the record pre-read
		unread := actorID != post.AuthorID
		return d.createNote(tx, actorID, post.AuthorID, &post.ID, text, models.NoteModerator, unread)
	})
	if err != nil {
		return nil, kinded(err)
	}
	switch action {
	case ModDelete:
		d.dropFromSearch(&post)
	case ModUndelete:
		d.notifySearch(&post, false)
	}
	return &post, nil
}

// CastVote records a vote and applies its ledger effects. An existing
// opposing vote is reverted first inside the same transaction, so the
// mutually exclusive pair never coexists.
func (d *Dispatcher) CastVote(authorID, postID uint, voteType int) (*models.Vote, error) {
	if !models.ValidVoteType(voteType) {
		return nil, fmt.Errorf("unknown vote type %d: %w", voteType, ErrValidation)
	}
	vote := models.Vote{AuthorID: authorID, PostID: postID, Type: voteType}
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := lockForUpdate(tx).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("post %d: %w", postID, ErrNotFound)
			}
			return err
		}
		if voteType == models.VoteAccept && post.ParentID == nil {
			return fmt.Errorf("accept requires an answer post, post %d has no parent: %w", postID, ErrValidation)
		}

		var existing models.Vote
		err := tx.Where("author_id = ? AND post_id = ? AND type = ?", authorID, postID, voteType).
			First(&existing).Error
		if err == nil {
			return fmt.Errorf("vote already cast: %w", ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if opp, ok := opposingVotes[voteType]; ok {
			var opposing models.Vote
			err := tx.Where("author_id = ? AND post_id = ? AND type = ?", authorID, postID, opp).
				First(&opposing).Error
			switch {
			case err == nil:
				if err := applyVote(tx, &opposing, -1); err != nil {
					return err
				}
				if err := tx.Delete(&opposing).Error; err != nil {
					return err
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		return applyVote(tx, &vote, +1)
	})
	if err != nil {
		return nil, kinded(err)
	}
	return &vote, nil
}

// RemoveVote reverts and deletes an existing vote; every effect of the
// original apply is reversed exactly.
func (d *Dispatcher) RemoveVote(authorID, postID uint, voteType int) error {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var vote models.Vote
		err := tx.Where("author_id = ? AND post_id = ? AND type = ?", authorID, postID, voteType).
			First(&vote).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("vote: %w", ErrNotFound)
			}
			return err
		}
		if err := applyVote(tx, &vote, -1); err != nil {
			return err
		}
		return tx.Delete(&vote).Error
	})
	return kinded(err)
}

// GrantAward creates an award and applies its badge counters. Unique badges
// are checked under a row lock on the badge so concurrent grants for the same
// pair serialize and only one succeeds.
func (d *Dispatcher) GrantAward(badgeID, userID, senderID uint) (*models.Award, error) {
	award := models.Award{BadgeID: badgeID, UserID: userID, Date: time.Now()}
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var badge models.Badge
		if err := lockForUpdate(tx).First(&badge, badgeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("badge %d: %w", badgeID, ErrNotFound)
			}
			return err
		}
		if badge.Unique {
			var live int64
			err := tx.Model(&models.Award{}).
				Where("badge_id = ? AND user_id = ?", badgeID, userID).
				Count(&live).Error
			if err != nil {
				return err
			}
			if live > 0 {
				return fmt.Errorf("badge %q already awarded to user %d: %w", badge.Name, userID, ErrConflict)
			}
		}
		if err := tx.Create(&award).Error; err != nil {
			return err
		}
		if err := applyAward(tx, &award, &badge, +1); err != nil {
			return err
		}
		text := d.notices.ComposeNotice("award", "", badge.Name)
		return d.createNote(tx, senderID, userID, nil, text, models.NoteAward, true)
	})
	if err != nil {
		return nil, kinded(err)
	}
	return &award, nil
}

// RevokeAward reverts and deletes an award, decrementing both counters.
func (d *Dispatcher) RevokeAward(awardID uint) error {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var award models.Award
		if err := tx.First(&award, awardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("award %d: %w", awardID, ErrNotFound)
			}
			return err
		}
		var badge models.Badge
		if err := lockForUpdate(tx).First(&badge, award.BadgeID).Error; err != nil {
			return err
		}
		if err := applyAward(tx, &award, &badge, -1); err != nil {
			return err
		}
		return tx.Delete(&award).Error
	})
	return kinded(err)
}

// MarkNoteRead flips the unread flag, the only mutable field of a note.
// Marking an already-read note is a no-op; mysql reports changed rows rather
// than matched rows, so a zero count alone does not mean the note is missing.
func (d *Dispatcher) MarkNoteRead(noteID, targetID uint) error {
	res := d.db.Model(&models.Note{}).
		Where("id = ? AND target_id = ? AND unread = ?", noteID, targetID, true).
		UpdateColumn("unread", false)
	if res.Error != nil {
		return kinded(res.Error)
	}
	if res.RowsAffected == 0 {
		var live int64
		err := d.db.Model(&models.Note{}).
			Where("id = ? AND target_id = ?", noteID, targetID).
			Count(&live).Error
		if err != nil {
			return kinded(err)
		}
		if live == 0 {
			return fmt.Errorf("note %d: %w", noteID, ErrNotFound)
		}
	}
	return nil
}

// BumpViews increments the view counter. Views are relevance metadata, not
// ledger state, so this runs outside the lifecycle-event boundary.
func (d *Dispatcher) BumpViews(postID uint) error {
	return d.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// normalizePost fills derived and defaulted fields before persistence.
func (d *Dispatcher) normalizePost(post *models.Post) error {
	if !models.ValidPostType(post.Type) {
		return fmt.Errorf("unknown post type %d: %w", post.Type, ErrValidation)
	}
	if strings.TrimSpace(post.Content) == "" {
		return fmt.Errorf("post content is empty: %w", ErrValidation)
	}
	if !models.ContentOnly(post.Type) && strings.TrimSpace(post.Title) == "" {
		return fmt.Errorf("post title is empty: %w", ErrValidation)
	}
	now := time.Now()
	if post.LastEditUserID == 0 {
		post.LastEditUserID = post.AuthorID
	}
	if post.CreationDate.IsZero() {
		post.CreationDate = now
	}
	post.LastEditDate = now
	post.TouchDate = now
	post.Slug = slugify(post.Title)
	post.HTML = d.render.RenderToDisplay(post.Content)
	return nil
}

// notifyThread sends a note about a new reply to everyone who authored a post
// in the same thread. The reply's own author gets the note pre-read.
func (d *Dispatcher) notifyThread(tx *gorm.DB, post *models.Post) error {
	if post.ParentID == nil || post.RootID == nil {
		return nil
	}
	var authorIDs []uint
	err := tx.Model(&models.Post{}).Distinct("author_id").
		Where("root_id = ? AND id <> ?", *post.RootID, post.ID).
		Pluck("author_id", &authorIDs).Error
	if err != nil {
		return err
	}
	actor, err := displayName(tx, post.AuthorID)
	if err != nil {
		return err
	}
	var root models.Post
	if err := tx.First(&root, *post.RootID).Error; err != nil {
		return err
	}
	text := d.notices.ComposeNotice("post", actor, root.Title)
	for _, targetID := range authorIDs {
		unread := targetID != post.AuthorID
		if err := d.createNote(tx, post.AuthorID, targetID, post.RootID, text, models.NoteUser, unread); err != nil {
			return err
		}
	}
	return nil
}

// createNote persists a notification record with rendered display content.
func (d *Dispatcher) createNote(tx *gorm.DB, senderID, targetID uint, postID *uint, content string, noteType int, unread bool) error {
	note := models.Note{
		SenderID: senderID,
		TargetID: targetID,
		PostID:   postID,
		Content:  content,
		HTML:     d.render.RenderToDisplay(content),
		Date:     time.Now(),
		Unread:   unread,
		Type:     noteType,
	}
	return tx.Create(&note).Error
}

// notifySearch hands the post text to the search collaborator outside the
// event transaction. Indexing failure never affects committed state.
func (d *Dispatcher) notifySearch(post *models.Post, create bool) {
	if d.search == nil {
		return
	}
	id, text := post.ID, post.IndexableText()
	go func() {
		if err := d.search.Index(id, text, create); err != nil {
			d.log.Warn("search index update failed",
				zap.Uint("post_id", id), zap.Bool("create", create), zap.Error(err))
		}
	}()
}

// dropFromSearch removes a deleted post from the index, same contract as
// notifySearch.
func (d *Dispatcher) dropFromSearch(post *models.Post) {
	if d.search == nil {
		return
	}
	id := post.ID
	go func() {
		if err := d.search.Delete(id); err != nil {
			d.log.Warn("search index delete failed", zap.Uint("post_id", id), zap.Error(err))
		}
	}()
}

// displayName resolves a user's display name for notification text.
func displayName(tx *gorm.DB, userID uint) (string, error) {
	var profile models.UserProfile
	err := tx.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return "", err
	}
	return profile.DisplayName, nil
}

func typeName(postType int) string {
	switch postType {
	case models.PostQuestion:
		return "Question"
	case models.PostAnswer:
		return "Answer"
	case models.PostComment:
		return "Comment"
	case models.PostGuide:
		return "Guide"
	case models.PostBlog:
		return "Blog"
	case models.PostNews:
		return "News"
	}
	return "Post"
}

// slugify reduces a title to a URL-safe lowercase slug.
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
