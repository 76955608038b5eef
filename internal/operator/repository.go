package operator

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrOperatorNotFound = errors.New("operator not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, name, email, passwordHash, role string) (*Operator, error) {
	query := `
		INSERT INTO operators (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, role, created_at
	`

	var op Operator
	err := r.db.GetContext(ctx, &op, query, name, email, passwordHash, role)
	if err != nil {
		return nil, err
	}

	return &op, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM operators
		WHERE email = $1
	`

	var op Operator
	err := r.db.GetContext(ctx, &op, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}

	return &op, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Operator, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM operators
		WHERE id = $1
	`

	var op Operator
	err := r.db.GetContext(ctx, &op, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}

	return &op, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM operators WHERE email = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, err
	}

	return exists, nil
}
