package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const bookingColumns = `booking_id, user_id, travel_option_id, number_of_seats, total_price::text, status,
	passenger_details, booking_date, created_at, updated_at`

type PGBookingRepository struct {
	db querier
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	passengers, err := json.Marshal(booking.PassengerNames)
	if err != nil {
		return fmt.Errorf("encode passengers: %w", err)
	}

	if err := r.db.QueryRow(ctx, `INSERT INTO bookings
		(user_id, travel_option_id, number_of_seats, total_price, status, passenger_details, booking_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING booking_id, created_at, updated_at`,
		booking.UserID, booking.TravelOptionID, booking.Seats, booking.TotalPrice.String(),
		string(booking.Status), string(passengers), booking.BookingDate).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1`, id)
	return scanBookingRow(row)
}

func (r *PGBookingRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1 FOR UPDATE`, id)
	return scanBookingRow(row)
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	res, err := r.db.Exec(ctx, `UPDATE bookings SET status=$2, updated_at=now() WHERE booking_id=$1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// ListByUser returns the user's bookings, newest first. An empty status
// returns every status.
func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64, status domain.BookingStatus) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, string(status))
	}
	query += ` ORDER BY booking_date DESC, booking_id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBookingRow(row pgx.Row) (*domain.Booking, error) {
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b          domain.Booking
		total      string
		passengers []byte
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.TravelOptionID, &b.Seats, &total, &b.Status,
		&passengers, &b.BookingDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total of booking %d: %w", b.ID, err)
	}
	b.TotalPrice = price

	if len(passengers) > 0 {
		if err := json.Unmarshal(passengers, &b.PassengerNames); err != nil {
			return nil, fmt.Errorf("decode passengers of booking %d: %w", b.ID, err)
		}
	}
	return &b, nil
}

var (
	_ BookingRepository = (*PGBookingRepository)(nil)
	_ TxBookings        = (*PGBookingRepository)(nil)
)
