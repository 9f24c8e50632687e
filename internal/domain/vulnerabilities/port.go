package vulnerabilities

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidScreenshotName is returned for names that collapse to nothing or
// try to leave the screenshot directory.
var ErrInvalidScreenshotName = errors.New("invalid screenshot name")

// Repository port (interface untuk persistence)
type Repository interface {
	// List returns an empty slice when nothing was stored for appID.
	List(ctx context.Context, appID string) ([]Vulnerability, error)
	// Exists reports whether a record was ever written for appID.
	Exists(ctx context.Context, appID string) (bool, error)
	Replace(ctx context.Context, appID string, vulns []Vulnerability) error
	// Append is read-modify-write and stamps CreatedAt and ModifiedBy.
	Append(ctx context.Context, appID string, v Vulnerability, modifiedBy string) error
}

// ScreenshotStore keeps uploaded screenshots in a shared directory.
type ScreenshotStore interface {
	// Save stores r under the sanitized form of name and returns that form.
	Save(name string, r io.Reader) (string, error)
	// Resolve maps a step's screenshot reference to a path on disk.
	Resolve(ref string) (string, bool)
}
