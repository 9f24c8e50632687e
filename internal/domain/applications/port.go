package applications

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record exists for an application id.
var ErrNotFound = errors.New("application not found")

// Repository port (interface untuk persistence)
type Repository interface {
	Get(ctx context.Context, id string) (*Application, error)
	List(ctx context.Context) ([]*Application, error)
	// Save assigns an id when missing, normalizes dates and overwrites the record.
	Save(ctx context.Context, a *Application) error
}
