package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var travelOptionColumnNames = []string{
	"travel_id", "travel_type", "source", "destination", "departure_datetime", "arrival_datetime",
	"price", "available_seats", "total_seats", "operator", "created_at", "updated_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func travelOptionRow(id int64, available, total int) *pgxmock.Rows {
	departure := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(travelOptionColumnNames).AddRow(
		id, domain.TravelTypeFlight, "Delhi", "Mumbai", departure, departure.Add(2*time.Hour),
		"5000.00", available, total, "SkyJet", departure.Add(-72*time.Hour), departure.Add(-72*time.Hour),
	)
}

func TestPGTravelOptionRepository_GetForUpdateLocksRow(t *testing.T) {
	pool := newMockPool(t)
	repo := &PGTravelOptionRepository{db: pool}

	pool.ExpectQuery(regexp.QuoteMeta(`FROM travel_options WHERE travel_id=$1 FOR UPDATE`)).
		WithArgs(int64(3)).
		WillReturnRows(travelOptionRow(3, 8, 10))

	got, err := repo.GetForUpdate(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, 8, got.AvailableSeats)
	assert.Equal(t, "5000", got.Price.String())
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGTravelOptionRepository_GetForUpdateMissing(t *testing.T) {
	pool := newMockPool(t)
	repo := &PGTravelOptionRepository{db: pool}

	pool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(travelOptionColumnNames))

	_, err := repo.GetForUpdate(context.Background(), 42)

	assert.ErrorIs(t, err, domain.ErrTravelOptionNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGTravelOptionRepository_SetAvailableSeats(t *testing.T) {
	testCases := []struct {
		name     string
		affected int64
		err      error
	}{
		{name: "updated", affected: 1},
		{name: "missing row", affected: 0, err: domain.ErrTravelOptionNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pool := newMockPool(t)
			repo := &PGTravelOptionRepository{db: pool}

			pool.ExpectExec(regexp.QuoteMeta(`UPDATE travel_options SET available_seats=$2, updated_at=now() WHERE travel_id=$1`)).
				WithArgs(int64(3), 7).
				WillReturnResult(pgxmock.NewResult("UPDATE", tc.affected))

			err := repo.SetAvailableSeats(context.Background(), 3, 7)

			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, pool.ExpectationsWereMet())
		})
	}
}

func TestPGTransactor_CommitsWhenFnSucceeds(t *testing.T) {
	pool := newMockPool(t)
	transactor := &PGTransactor{db: pool}

	pool.ExpectBegin()
	pool.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs(int64(3)).WillReturnRows(travelOptionRow(3, 8, 10))
	pool.ExpectExec(regexp.QuoteMeta(`UPDATE travel_options SET available_seats=$2`)).
		WithArgs(int64(3), 6).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectCommit()

	err := transactor.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		option, err := tx.TravelOptions().GetForUpdate(ctx, 3)
		if err != nil {
			return err
		}
		return tx.TravelOptions().SetAvailableSeats(ctx, option.ID, option.AvailableSeats-2)
	})

	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGTransactor_RollsBackWhenFnFails(t *testing.T) {
	pool := newMockPool(t)
	transactor := &PGTransactor{db: pool}
	boom := errors.New("not enough seats")

	pool.ExpectBegin()
	pool.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status=$2`)).
		WithArgs(int64(5), string(domain.BookingStatusCancelled)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectRollback()

	err := transactor.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.Bookings().UpdateStatus(ctx, 5, domain.BookingStatusCancelled); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPGTransactor_BeginAndCommitErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin().WillReturnError(errors.New("too many connections"))

		err := (&PGTransactor{db: pool}).WithinTx(context.Background(), func(context.Context, Tx) error {
			t.Fatal("fn must not run without a transaction")
			return nil
		})

		assert.ErrorContains(t, err, "begin tx")
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("commit", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin()
		pool.ExpectCommit().WillReturnError(errors.New("connection reset"))
		pool.ExpectRollback()

		err := (&PGTransactor{db: pool}).WithinTx(context.Background(), func(context.Context, Tx) error {
			return nil
		})

		assert.ErrorContains(t, err, "commit tx")
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}
