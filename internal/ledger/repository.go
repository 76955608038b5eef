package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrEntryNotFound    = errors.New("ledger entry not found")
	ErrUnknownEntryType = errors.New("unknown entry type")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, userID string, amount int64, entryType EntryType, effectiveAt int64, expiresAt *int64) (*Entry, error) {
	if !entryType.Valid() {
		return nil, ErrUnknownEntryType
	}

	e := &Entry{}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO ledger_entries (user_id, amount, type, effective_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, amount, type, effective_at, expires_at, deleted, created_at`,
		userID, amount, entryType, effectiveAt, expiresAt,
	).StructScan(e)
	if err != nil {
		return nil, err
	}

	return e, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, amount, type, effective_at, expires_at, deleted, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY effective_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Entry{}, nil
		}
		return nil, err
	}

	return entries, nil
}

// ListAllForUser returns the full ledger for a user, deleted entries
// included. The calculator excludes them itself, keeping the fetched
// set auditable.
func (r *repository) ListAllForUser(ctx context.Context, userID string) ([]Entry, error) {
	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, amount, type, effective_at, expires_at, deleted, created_at
		FROM ledger_entries
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Entry{}, nil
		}
		return nil, err
	}

	return entries, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_entries SET deleted = TRUE WHERE id = $1 AND deleted = FALSE`,
		id,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}

	return nil
}

func (r *repository) ListUserIDs(ctx context.Context) ([]string, error) {
	var userIDs []string
	err := r.db.SelectContext(ctx, &userIDs,
		`SELECT DISTINCT user_id FROM ledger_entries ORDER BY user_id`,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []string{}, nil
		}
		return nil, err
	}

	return userIDs, nil
}
