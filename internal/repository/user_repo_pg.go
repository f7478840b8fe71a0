package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `user_id, username, email, first_name, last_name, password_hash, is_staff,
	phone_number, address, date_of_birth, created_at, updated_at`

type PGUserRepository struct {
	db querier
}

func NewUserRepository(db *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `INSERT INTO users
		(username, email, first_name, last_name, password_hash, is_staff, phone_number, address, date_of_birth)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING user_id, created_at, updated_at`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsStaff,
		u.Profile.PhoneNumber, u.Profile.Address, u.Profile.DateOfBirth).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapUserWriteError(err, "insert user")
	}
	return nil
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUserRow(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, id))
}

func (r *PGUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUserRow(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

func (r *PGUserRepository) EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email)=lower($1) AND user_id<>$2)`,
		email, exceptUserID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

func (r *PGUserRepository) Update(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `UPDATE users SET
		email=$2, first_name=$3, last_name=$4, phone_number=$5, address=$6, date_of_birth=$7, updated_at=now()
		WHERE user_id=$1
		RETURNING updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Profile.PhoneNumber, u.Profile.Address, u.Profile.DateOfBirth).
		Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return mapUserWriteError(err, "update user")
	}
	return nil
}

func (r *PGUserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE user_id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func mapUserWriteError(err error, op string) error {
	if constraint, ok := isUniqueViolation(err); ok {
		if strings.Contains(constraint, "email") {
			return domain.ErrEmailTaken
		}
		return domain.ErrUsernameTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanUserRow(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.IsStaff,
		&u.Profile.PhoneNumber, &u.Profile.Address, &u.Profile.DateOfBirth, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
