package balance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrCachedBalanceNotFound = errors.New("cached balance not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreate(ctx context.Context, userID string) (*Cached, error) {
	b := &Cached{}
	err := r.db.GetContext(ctx, b,
		`SELECT user_id, credits, held_credits, lifetime_credits, credits_last_updated, created_at, updated_at
		 FROM balance_cache WHERE user_id = $1`,
		userID,
	)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO balance_cache (user_id)
		 VALUES ($1)
		 RETURNING user_id, credits, held_credits, lifetime_credits, credits_last_updated, created_at, updated_at`,
		userID,
	).StructScan(b)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (r *repository) Get(ctx context.Context, userID string) (*Cached, error) {
	b := &Cached{}
	err := r.db.GetContext(ctx, b,
		`SELECT user_id, credits, held_credits, lifetime_credits, credits_last_updated, created_at, updated_at
		 FROM balance_cache WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCachedBalanceNotFound
		}
		return nil, err
	}

	return b, nil
}

// Apply overwrites the cached projection and records the correction in
// the audit trail in one transaction. The projection row is locked for
// the duration so a concurrent grant cannot interleave its own update.
func (r *repository) Apply(ctx context.Context, userID string, patch Patch, updatedBy string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing Cached
	err = tx.QueryRowxContext(ctx,
		`SELECT user_id, credits, held_credits, lifetime_credits, credits_last_updated, created_at, updated_at
		 FROM balance_cache
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.QueryRowxContext(ctx,
				`INSERT INTO balance_cache (user_id)
				 VALUES ($1)
				 RETURNING user_id, credits, held_credits, lifetime_credits, credits_last_updated, created_at, updated_at`,
				userID,
			).StructScan(&existing)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE balance_cache
		 SET credits = $1, held_credits = $2, lifetime_credits = $3, credits_last_updated = $4, updated_at = NOW()
		 WHERE user_id = $5`,
		patch.Credits, patch.HeldCredits, patch.LifetimeCredits, patch.CreditsLastUpdated, userID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO balance_corrections (user_id, credits_before, credits_after, held_before, held_after, lifetime_before, lifetime_after, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		userID,
		existing.Credits, patch.Credits,
		existing.HeldCredits, patch.HeldCredits,
		existing.LifetimeCredits, patch.LifetimeCredits,
		updatedBy,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
