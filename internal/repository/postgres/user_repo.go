package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/firmbook/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	constraintUserEmail = "users_email_key"
	constraintUserPhone = "users_phone_key"
)

const (
	qUserInsert = `
INSERT INTO users (email, phone, password_hash)
VALUES ($1, $2, $3)
RETURNING id, email, phone, password_hash, created_at, updated_at;`

	qUserByID = `
SELECT id, email, phone, password_hash, created_at, updated_at
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT id, email, phone, password_hash, created_at, updated_at
FROM users
WHERE email = $1;`

	qUserByPhone = `
SELECT id, email, phone, password_hash, created_at, updated_at
FROM users
WHERE phone = $1;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := scanUser(eq.QueryRow(ctx, qUserInsert, u.Email, u.Phone, u.PasswordHash), u); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return &user.DuplicateError{Field: duplicateField(constraint)}
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, qUserByID, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, qUserByEmail, email)
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	return r.getOne(ctx, qUserByPhone, phone)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, q, arg), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || invalidText(err) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("user select: %w", err)
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	return row.Scan(&out.ID, &out.Email, &out.Phone, &out.PasswordHash, &out.CreatedAt, &out.UpdatedAt)
}

func duplicateField(constraint string) string {
	switch constraint {
	case constraintUserPhone:
		return "phone"
	default:
		return "email"
	}
}
