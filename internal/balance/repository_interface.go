package balance

import "context"

type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Cached, error)
	Get(ctx context.Context, userID string) (*Cached, error)
	Apply(ctx context.Context, userID string, patch Patch, updatedBy string) error
}
