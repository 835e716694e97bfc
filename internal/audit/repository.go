package audit

import "context"

// Repository is an append-only store of attempts.
type Repository interface {
	// Append stores an attempt. Existing entries are never modified.
	Append(ctx context.Context, a *Attempt) error

	// ListBySubject returns all entries for a subject, oldest first.
	ListBySubject(ctx context.Context, subjectID string) ([]*Attempt, error)
}
