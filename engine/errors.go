package engine

import "errors"

// Error kinds returned by the dispatcher. Callers classify with errors.Is;
// the wrapped message carries the specific reason.
var (
	// ErrValidation marks an event that is malformed before any side effect
	// is applied, e.g. an accept vote on a post without a parent.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks an event that violates an invariant, e.g. a
	// duplicate unique-badge award or moderating a deleted post.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks an event referencing a missing post, badge or user.
	ErrNotFound = errors.New("not found")

	// ErrTransaction marks a storage-layer failure; all derived state was
	// rolled back and the caller must not retry blindly.
	ErrTransaction = errors.New("transaction failed")
)

// kinded classifies a transaction result: engine errors pass through, raw
// storage errors are tagged as transaction failures.
func kinded(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	return errors.Join(ErrTransaction, err)
}
