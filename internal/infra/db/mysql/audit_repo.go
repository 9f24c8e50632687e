package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/pentest-report/internal/domain/audit"
)

// Schema for the audit trail table.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS audit_logs (
  id         VARCHAR(36)  NOT NULL PRIMARY KEY,
  action     TEXT         NOT NULL,
  actor      VARCHAR(128) NOT NULL,
  created_at DATETIME(6)  NOT NULL,
  KEY idx_audit_created (created_at)
);`

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Migrate creates the audit table when missing.
func (r *AuditRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, AuditSchema)
	return err
}

// Save inserts an audit entry
func (r *AuditRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO audit_logs (id, action, actor, created_at)
VALUES (?,?,?,?);
`
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Action, stringOrDash(e.Actor), e.Timestamp)
	return err
}

// Latest returns the newest entries first
func (r *AuditRepository) Latest(ctx context.Context, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, action, actor, created_at
FROM audit_logs
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
