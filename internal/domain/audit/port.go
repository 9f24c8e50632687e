package audit

import "context"

// Repository defines persistence for audit entries
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	// Latest returns up to limit entries, newest first.
	Latest(ctx context.Context, limit int) ([]*Entry, error)
}
