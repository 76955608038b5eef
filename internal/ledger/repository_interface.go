package ledger

import "context"

type Repository interface {
	Append(ctx context.Context, userID string, amount int64, entryType EntryType, effectiveAt int64, expiresAt *int64) (*Entry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
	ListAllForUser(ctx context.Context, userID string) ([]Entry, error)
	SoftDelete(ctx context.Context, id int64) error
	ListUserIDs(ctx context.Context) ([]string, error)
}
