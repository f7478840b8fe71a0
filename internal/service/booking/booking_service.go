package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/ledger"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID int64) (*domain.BookingDetails, error)
	ListBookings(ctx context.Context, userID int64, status domain.BookingStatus) ([]domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

// DefaultAlertRetries bounds delivery attempts of an inventory alert.
const DefaultAlertRetries = 3

type CreateBookingInput struct {
	UserID         int64    `json:"-"`
	TravelOptionID int64    `json:"travel_option_id"`
	Seats          int      `json:"number_of_seats"`
	PassengerNames []string `json:"passenger_names"`
	TermsAccepted  bool     `json:"terms_accepted"`
}

type CancelBookingInput struct {
	UserID    int64 `json:"-"`
	BookingID int64 `json:"-"`
	Confirmed bool  `json:"confirm"`
}

// Policy holds the business thresholds of the booking lifecycle.
type Policy struct {
	MaxSeatsPerBooking int
	CancellationWindow time.Duration
}

var DefaultPolicy = Policy{
	MaxSeatsPerBooking: 10,
	CancellationWindow: 2 * time.Hour,
}

type BookingService struct {
	tx       repository.Transactor
	bookings repository.BookingRepository
	travel   repository.TravelOptionRepository
	ledger   *ledger.Ledger
	log      logrus.FieldLogger

	producer     Producer
	bookingTopic string
	alertsTopic  string
	alertRetries int
	clock        clock.Clock
	policy       Policy
}

type BookingServiceOption func(*BookingService)

func WithProducer(p Producer, bookingTopic, alertsTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
		s.alertsTopic = alertsTopic
	}
}

func WithAlertRetries(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.alertRetries = n
		}
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) {
		s.clock = c
	}
}

func WithPolicy(p Policy) BookingServiceOption {
	return func(s *BookingService) {
		s.policy = p
	}
}

func NewBookingService(
	tx repository.Transactor,
	bookings repository.BookingRepository,
	travel repository.TravelOptionRepository,
	l *ledger.Ledger,
	log logrus.FieldLogger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		tx:       tx,
		bookings: bookings,
		travel:   travel,
		ledger:   l,
		log:      log,
		clock:    clock.New(),
		policy:   DefaultPolicy,

		alertRetries: DefaultAlertRetries,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	names, err := ValidateCreateBooking(input, s.policy.MaxSeatsPerBooking)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// advisory only, the ledger re-checks under the row lock
	option, err := s.travel.GetByID(ctx, input.TravelOptionID)
	if err != nil {
		return nil, err
	}
	if option.Departed(now) {
		return nil, domain.ErrTravelOptionDeparted
	}

	var booking *domain.Booking
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := s.ledger.Reserve(ctx, tx, input.TravelOptionID, input.Seats)
		if err != nil {
			return err
		}
		if locked.Departed(now) {
			return domain.ErrTravelOptionDeparted
		}

		booking = &domain.Booking{
			UserID:         input.UserID,
			TravelOptionID: input.TravelOptionID,
			Seats:          input.Seats,
			TotalPrice:     locked.Price.Mul(decimal.NewFromInt(int64(input.Seats))),
			Status:         domain.BookingStatusConfirmed,
			PassengerNames: names,
			BookingDate:    now,
		}
		return tx.Bookings().Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":       booking.ID,
		"user_id":          booking.UserID,
		"travel_option_id": booking.TravelOptionID,
		"seats":            booking.Seats,
	}).Info("booking confirmed")

	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error) {
	current, err := s.ownedBooking(ctx, input.UserID, input.BookingID)
	if err != nil {
		return nil, err
	}
	if !input.Confirmed {
		return nil, domain.ErrCancellationNotConfirmed
	}

	option, err := s.travel.GetByID(ctx, current.TravelOptionID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !current.CanCancel(option.DepartureAt, now, s.policy.CancellationWindow) {
		return nil, domain.ErrCancellationWindowClosed
	}

	var cancelled *domain.Booking
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Bookings().GetForUpdate(ctx, input.BookingID)
		if err != nil {
			return err
		}
		// a concurrent cancel may have won the lock first
		if locked.Status != domain.BookingStatusConfirmed {
			return domain.ErrCancellationWindowClosed
		}

		if err := tx.Bookings().UpdateStatus(ctx, locked.ID, domain.BookingStatusCancelled); err != nil {
			return err
		}
		if _, err := s.ledger.Release(ctx, tx, locked.TravelOptionID, locked.Seats); err != nil {
			return err
		}

		locked.Status = domain.BookingStatusCancelled
		locked.UpdatedAt = now
		cancelled = locked
		return nil
	})
	if err != nil {
		var corruption *domain.InventoryCorruptionError
		if errors.As(err, &corruption) {
			s.alert(ctx, current.ID, corruption)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":       cancelled.ID,
		"user_id":          cancelled.UserID,
		"travel_option_id": cancelled.TravelOptionID,
		"seats":            cancelled.Seats,
	}).Info("booking cancelled")

	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID int64) (*domain.BookingDetails, error) {
	b, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	option, err := s.travel.GetByID(ctx, b.TravelOptionID)
	if err != nil {
		return nil, err
	}
	return &domain.BookingDetails{
		Booking:      *b,
		TravelOption: *option,
		CanCancel:    b.CanCancel(option.DepartureAt, s.clock.Now(), s.policy.CancellationWindow),
	}, nil
}

// ListBookings returns the user's bookings newest first. A status outside the
// known set lists every booking.
func (s *BookingService) ListBookings(ctx context.Context, userID int64, status domain.BookingStatus) ([]domain.Booking, error) {
	if !status.Valid() {
		status = ""
	}
	return s.bookings.ListByUser(ctx, userID, status)
}

// ownedBooking hides other users' bookings behind ErrBookingNotFound.
func (s *BookingService) ownedBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, b, s.clock.Now())
	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"booking_id": b.ID,
			"event":      eventType,
		}).Warn("failed to publish booking event")
	}
}

func (s *BookingService) alert(ctx context.Context, bookingID int64, corruption *domain.InventoryCorruptionError) {
	s.log.WithFields(logrus.Fields{
		"booking_id":       bookingID,
		"travel_option_id": corruption.TravelOptionID,
	}).Error("cancellation aborted by inventory corruption")

	if s.producer == nil || s.alertsTopic == "" {
		return
	}
	alert := kafka.NewReleaseAlert(bookingID, corruption, s.clock.Now())
	if err := s.producer.PublishWithRetry(ctx, s.alertsTopic, alert.Key(), alert, s.alertRetries); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"attempts":   s.alertRetries,
		}).Error("failed to publish inventory alert")
	}
}

var _ BookingUseCase = (*BookingService)(nil)
