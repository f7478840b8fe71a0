package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
)

type TravelOptionRepository struct{ s *Store }

func (r *TravelOptionRepository) Search(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.TravelOption, 0)
	for _, t := range r.s.travelOptions {
		if !t.IsAvailable(filter.Now) {
			continue
		}
		if filter.Source != "" && !containsFold(t.Source, filter.Source) {
			continue
		}
		if filter.Destination != "" && !containsFold(t.Destination, filter.Destination) {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if !filter.DepartureDate.IsZero() && !sameDay(t.DepartureAt, filter.DepartureDate) {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].DepartureAt.Before(out[j].DepartureAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TravelOptionRepository) GetByID(ctx context.Context, id int64) (*domain.TravelOption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.travelOptions[id]
	if !ok {
		return nil, domain.ErrTravelOptionNotFound
	}
	return &t, nil
}

func (r *TravelOptionRepository) Create(ctx context.Context, t *domain.TravelOption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextTravelID++
	t.ID = r.s.nextTravelID
	now := r.s.clock.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.s.travelOptions[t.ID] = *t
	return nil
}

func (r *TravelOptionRepository) Cities(ctx context.Context, query string, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, t := range r.s.travelOptions {
		for _, city := range []string{t.Source, t.Destination} {
			if containsFold(city, query) {
				seen[city] = struct{}{}
			}
		}
	}

	cities := make([]string, 0, len(seen))
	for city := range seen {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	if len(cities) > limit {
		cities = cities[:limit]
	}
	return cities, nil
}

type BookingRepository struct{ s *Store }

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64, status domain.BookingStatus) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if b.UserID != userID || (status != "" && b.Status != status) {
			continue
		}
		out = append(out, *cloneBooking(b))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate) {
			return out[i].BookingDate.After(out[j].BookingDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}

	r.s.nextUserID++
	u.ID = r.s.nextUserID
	now := r.s.clock.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.ID != exceptUserID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, other := range r.s.users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}

	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Profile = u.Profile
	existing.UpdatedAt = r.s.clock.Now()
	r.s.users[u.ID] = existing
	u.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.clock.Now()
	r.s.users[userID] = u
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// sameDay reports whether a falls on b's calendar date in b's location.
func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func cloneBooking(b domain.Booking) *domain.Booking {
	b.PassengerNames = append([]string(nil), b.PassengerNames...)
	return &b
}

func sortDiscrepancies(d []domain.InventoryDiscrepancy) {
	sort.Slice(d, func(i, j int) bool { return d[i].TravelOptionID < d[j].TravelOptionID })
}

var (
	_ repository.TravelOptionRepository = (*TravelOptionRepository)(nil)
	_ repository.BookingRepository      = (*BookingRepository)(nil)
	_ repository.UserRepository         = (*UserRepository)(nil)
)
