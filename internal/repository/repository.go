package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

type TravelOptionRepository interface {
	Search(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error)
	GetByID(ctx context.Context, id int64) (*domain.TravelOption, error)
	Create(ctx context.Context, option *domain.TravelOption) error
	Cities(ctx context.Context, query string, limit int) ([]string, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64, status domain.BookingStatus) ([]domain.Booking, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// TxTravelOptions is the row-locking view of travel options inside a transaction.
type TxTravelOptions interface {
	// GetForUpdate locks the row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.TravelOption, error)
	SetAvailableSeats(ctx context.Context, id int64, seats int) error
}

type TxBookings interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error
}

type Tx interface {
	TravelOptions() TxTravelOptions
	Bookings() TxBookings
}

// Transactor runs fn in a single transaction. It commits when fn returns nil
// and rolls back on any error or panic.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
