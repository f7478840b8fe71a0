package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewTravelOptionRepository(pool))
	assert.NotNil(t, NewBookingRepository(pool))
	assert.NotNil(t, NewUserRepository(pool))
	assert.NotNil(t, NewTransactor(pool))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%New York%", containsPattern("New York"))
	assert.Equal(t, `%50\%\_off\\%`, containsPattern(`50%_off\`))
}

func TestDayBounds(t *testing.T) {
	from, to := dayBounds(time.Date(2026, 3, 14, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), to)
}

func TestMapUserWriteError(t *testing.T) {
	emailDup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	nameDup := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	other := errors.New("connection reset")

	assert.ErrorIs(t, mapUserWriteError(emailDup, "insert user"), domain.ErrEmailTaken)
	assert.ErrorIs(t, mapUserWriteError(nameDup, "insert user"), domain.ErrUsernameTaken)

	err := mapUserWriteError(other, "insert user")
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "insert user")
}
