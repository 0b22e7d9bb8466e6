// Package notegen composes the user-facing text of notification records. The
// engine stores the result verbatim; wording lives here so the derived-state
// core never formats user text.
package notegen

import "fmt"

// Composer implements the engine's NoticeComposer interface.
type Composer struct{}

// New returns a text composer for dispatcher notices.
func New() Composer { return Composer{} }

// ComposeNotice renders the message for an event kind. Actor is a display
// name; subject is a post title or badge name depending on the kind.
func (Composer) ComposeNotice(eventKind, actor, subject string) string {
	switch eventKind {
	case "close":
		return fmt.Sprintf("%s closed your post %q", actor, subject)
	case "reopen":
		return fmt.Sprintf("%s reopened your post %q", actor, subject)
	case "delete":
		return fmt.Sprintf("%s deleted your post %q", actor, subject)
	case "undelete":
		return fmt.Sprintf("%s restored your post %q", actor, subject)
	case "award":
		return fmt.Sprintf("congratulations, you received the %s badge", subject)
	case "post":
		return fmt.Sprintf("%s replied in %q", actor, subject)
	}
	return fmt.Sprintf("%s updated %q", actor, subject)
}
