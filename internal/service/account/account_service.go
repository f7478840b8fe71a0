package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/facebookgo/clock"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLength = 150
	maxNameLength     = 30
	maxAddressLength  = 500
	minPasswordLength = 8
	maxAgeYears       = 100
	dateLayout        = "2006-01-02"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9@.+_-]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[1-9][\d\s\-()]{7,15}$`)
)

type AccountUseCase interface {
	Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
	Profile(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, input domain.UpdateProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) error
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type claims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

type AccountService struct {
	users      repository.UserRepository
	secret     []byte
	tokenTTL   time.Duration
	clock      clock.Clock
	bcryptCost int
	validate   *validator.Validate
	staff      map[string]bool
	log        logrus.FieldLogger
}

type AccountServiceOption func(*AccountService)

func WithClock(c clock.Clock) AccountServiceOption {
	return func(s *AccountService) {
		s.clock = c
	}
}

func WithBcryptCost(cost int) AccountServiceOption {
	return func(s *AccountService) {
		s.bcryptCost = cost
	}
}

// WithStaffUsernames grants staff rights to the named accounts at
// registration and on every login.
func WithStaffUsernames(usernames ...string) AccountServiceOption {
	return func(s *AccountService) {
		for _, name := range usernames {
			if name = strings.TrimSpace(name); name != "" {
				s.staff[name] = true
			}
		}
	}
}

func NewAccountService(users repository.UserRepository, secret string, tokenTTL time.Duration, log logrus.FieldLogger, opts ...AccountServiceOption) *AccountService {
	s := &AccountService{
		users:      users,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		clock:      clock.New(),
		bcryptCost: bcrypt.DefaultCost,
		validate:   validator.New(),
		staff:      make(map[string]bool),
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountService) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	var errs domain.ValidationErrors
	switch {
	case input.Username == "":
		errs.Add("username", "username is required")
	case utf8.RuneCountInString(input.Username) > maxUsernameLength:
		errs.Add("username", fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	case !usernamePattern.MatchString(input.Username):
		errs.Add("username", "username may contain only letters, digits and @/./+/-/_")
	}
	s.checkNames(&errs, input.FirstName, input.LastName)
	s.checkEmail(&errs, input.Email)
	checkNewPassword(&errs, "password", "password_confirm", input.Password, input.PasswordConfirm)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		IsStaff:      s.staff[input.Username],
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "staff": user.IsStaff}).Info("user registered")
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if s.staff[user.Username] {
		user.IsStaff = true
	}

	now := s.clock.Now()
	expires := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Staff: user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return domain.Principal{UserID: id, IsStaff: c.Staff}, nil
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, input domain.UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Address = strings.TrimSpace(input.Address)

	var errs domain.ValidationErrors
	s.checkNames(&errs, input.FirstName, input.LastName)
	s.checkEmail(&errs, input.Email)
	if input.PhoneNumber != "" && !phonePattern.MatchString(input.PhoneNumber) {
		errs.Add("phone_number", "enter a valid phone number")
	}
	if utf8.RuneCountInString(input.Address) > maxAddressLength {
		errs.Add("address", fmt.Sprintf("address must be at most %d characters", maxAddressLength))
	}
	dob, dobErr := s.parseDateOfBirth(input.DateOfBirth)
	if dobErr != "" {
		errs.Add("date_of_birth", dobErr)
	}

	if !errs.Has("email") {
		taken, err := s.users.EmailTaken(ctx, input.Email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("email", "this email is already in use")
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Email = input.Email
	user.Profile = domain.Profile{
		PhoneNumber: input.PhoneNumber,
		Address:     input.Address,
		DateOfBirth: dob,
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirm string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	var errs domain.ValidationErrors
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		errs.Add("old_password", "your old password was entered incorrectly")
	}
	checkNewPassword(&errs, "new_password", "new_password_confirm", newPassword, confirm)
	if err := errs.Err(); err != nil {
		return err
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.log.WithField("user_id", userID).Info("password changed")
	return nil
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkNewPassword(errs *domain.ValidationErrors, field, confirmField, password, confirm string) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs.Add(field, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if password != confirm {
		errs.Add(confirmField, "passwords do not match")
	}
}

func (s *AccountService) checkNames(errs *domain.ValidationErrors, first, last string) {
	names := []struct{ field, value string }{
		{"first_name", first},
		{"last_name", last},
	}
	for _, n := range names {
		switch {
		case n.value == "":
			errs.Add(n.field, "this field is required")
		case utf8.RuneCountInString(n.value) > maxNameLength:
			errs.Add(n.field, fmt.Sprintf("must be at most %d characters", maxNameLength))
		}
	}
}

func (s *AccountService) checkEmail(errs *domain.ValidationErrors, email string) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		errs.Add("email", "enter a valid email address")
	}
}

// parseDateOfBirth returns a validation message instead of an error.
func (s *AccountService) parseDateOfBirth(raw string) (*time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	dob, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, "date of birth must be in YYYY-MM-DD format"
	}
	now := s.clock.Now()
	if !dob.Before(now) {
		return nil, "date of birth must be in the past"
	}
	if dob.Before(now.AddDate(-maxAgeYears, 0, 0)) {
		return nil, "please enter a valid date of birth"
	}
	return &dob, ""
}

var _ AccountUseCase = (*AccountService)(nil)
