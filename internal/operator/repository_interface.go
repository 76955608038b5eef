package operator

import "context"

type Repository interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (*Operator, error)
	FindByEmail(ctx context.Context, email string) (*Operator, error)
	FindByID(ctx context.Context, id int) (*Operator, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
