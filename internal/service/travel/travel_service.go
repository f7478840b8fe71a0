package travel

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	minCityQuery   = 2
	maxCityResults = 10
	maxPlaceLength = 100
)

// maxPrice is the first value that no longer fits NUMERIC(10, 2).
var maxPrice = decimal.New(1, 8)

type TravelUseCase interface {
	Search(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error)
	GetByID(ctx context.Context, id int64) (*domain.TravelOption, error)
	Cities(ctx context.Context, query string) ([]string, error)
	Create(ctx context.Context, principal domain.Principal, input domain.CreateTravelOptionInput) (*domain.TravelOption, error)
}

type Cache interface {
	GetTravelOptions(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error)
	SetTravelOptions(ctx context.Context, filter domain.TravelSearch, options []domain.TravelOption) error
	GetCities(ctx context.Context, query string) ([]string, error)
	SetCities(ctx context.Context, query string, cities []string) error
	Invalidate(ctx context.Context) error
}

type TravelService struct {
	repo  repository.TravelOptionRepository
	cache Cache
	clock clock.Clock
	log   logrus.FieldLogger
}

type TravelServiceOption func(*TravelService)

func WithClock(c clock.Clock) TravelServiceOption {
	return func(s *TravelService) {
		s.clock = c
	}
}

// NewTravelService accepts a nil cache.
func NewTravelService(repo repository.TravelOptionRepository, cache Cache, log logrus.FieldLogger, opts ...TravelServiceOption) *TravelService {
	s := &TravelService{repo: repo, cache: cache, clock: clock.New(), log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search lists bookable options. Results may come from the cache, so their
// seat counts are a hint only.
func (s *TravelService) Search(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error) {
	filter.Source = strings.TrimSpace(filter.Source)
	filter.Destination = strings.TrimSpace(filter.Destination)
	if filter.Type != "" && !filter.Type.Valid() {
		var errs domain.ValidationErrors
		errs.Add("travel_type", "travel type must be one of flight, train, bus")
		return nil, errs
	}
	filter.Now = s.clock.Now()

	if s.cache != nil {
		cached, err := s.cache.GetTravelOptions(ctx, filter)
		if err != nil {
			s.log.WithError(err).Warn("travel search cache read failed")
		} else if cached != nil {
			return stillAvailable(cached, filter), nil
		}
	}

	options, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetTravelOptions(ctx, filter, options); err != nil {
			s.log.WithError(err).Warn("travel search cache write failed")
		}
	}
	return options, nil
}

func (s *TravelService) GetByID(ctx context.Context, id int64) (*domain.TravelOption, error) {
	return s.repo.GetByID(ctx, id)
}

// Cities suggests up to ten source or destination names containing query.
func (s *TravelService) Cities(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minCityQuery {
		return []string{}, nil
	}

	if s.cache != nil {
		cached, err := s.cache.GetCities(ctx, query)
		if err != nil {
			s.log.WithError(err).Warn("cities cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	cities, err := s.repo.Cities(ctx, query, maxCityResults)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetCities(ctx, query, cities); err != nil {
			s.log.WithError(err).Warn("cities cache write failed")
		}
	}
	return cities, nil
}

func (s *TravelService) Create(ctx context.Context, principal domain.Principal, input domain.CreateTravelOptionInput) (*domain.TravelOption, error) {
	if !principal.IsStaff {
		return nil, domain.ErrForbidden
	}

	input.Source = strings.TrimSpace(input.Source)
	input.Destination = strings.TrimSpace(input.Destination)
	input.Operator = strings.TrimSpace(input.Operator)
	if err := validateCreate(input, s.clock); err != nil {
		return nil, err
	}

	option := &domain.TravelOption{
		Type:           input.Type,
		Source:         input.Source,
		Destination:    input.Destination,
		DepartureAt:    input.DepartureAt,
		ArrivalAt:      input.ArrivalAt,
		Price:          input.Price,
		AvailableSeats: input.TotalSeats,
		TotalSeats:     input.TotalSeats,
		Operator:       input.Operator,
	}
	if err := s.repo.Create(ctx, option); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"travel_option_id": option.ID,
		"created_by":       principal.UserID,
	}).Info("travel option created")

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithError(err).Warn("travel cache invalidation failed")
		}
	}
	return option, nil
}

func validateCreate(input domain.CreateTravelOptionInput, c clock.Clock) error {
	var errs domain.ValidationErrors

	if !input.Type.Valid() {
		errs.Add("travel_type", "travel type must be one of flight, train, bus")
	}
	checkPlace(&errs, "source", input.Source)
	checkPlace(&errs, "destination", input.Destination)
	if input.Source != "" && strings.EqualFold(input.Source, input.Destination) {
		errs.Add("destination", "destination must differ from source")
	}
	if !input.DepartureAt.After(c.Now()) {
		errs.Add("departure_datetime", "departure must be in the future")
	}
	if !input.ArrivalAt.After(input.DepartureAt) {
		errs.Add("arrival_datetime", "arrival must be after departure")
	}
	switch {
	case input.Price.IsNegative():
		errs.Add("price", "price cannot be negative")
	case !input.Price.Equal(input.Price.Round(2)):
		errs.Add("price", "price allows at most 2 decimal places")
	case input.Price.GreaterThanOrEqual(maxPrice):
		errs.Add("price", "price must be below 100000000")
	}
	if input.TotalSeats < 1 {
		errs.Add("total_seats", "total seats must be at least 1")
	}
	if utf8.RuneCountInString(input.Operator) > maxPlaceLength {
		errs.Add("operator", "operator is too long")
	}

	return errs.Err()
}

func checkPlace(errs *domain.ValidationErrors, field, value string) {
	switch {
	case value == "":
		errs.Add(field, field+" is required")
	case utf8.RuneCountInString(value) > maxPlaceLength:
		errs.Add(field, field+" is too long")
	}
}

func stillAvailable(options []domain.TravelOption, filter domain.TravelSearch) []domain.TravelOption {
	out := make([]domain.TravelOption, 0, len(options))
	for _, o := range options {
		if o.IsAvailable(filter.Now) {
			out = append(out, o)
		}
	}
	return out
}

var _ TravelUseCase = (*TravelService)(nil)
