package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const travelOptionColumns = `travel_id, travel_type, source, destination, departure_datetime, arrival_datetime,
	price::text, available_seats, total_seats, operator, created_at, updated_at`

type PGTravelOptionRepository struct {
	db querier
}

func NewTravelOptionRepository(db *pgxpool.Pool) *PGTravelOptionRepository {
	return &PGTravelOptionRepository{db: db}
}

func (r *PGTravelOptionRepository) Search(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error) {
	conds := []string{"available_seats > 0", "departure_datetime > $1"}
	args := []any{filter.Now}

	if filter.Source != "" {
		args = append(args, containsPattern(filter.Source))
		conds = append(conds, fmt.Sprintf("source ILIKE $%d", len(args)))
	}
	if filter.Destination != "" {
		args = append(args, containsPattern(filter.Destination))
		conds = append(conds, fmt.Sprintf("destination ILIKE $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("travel_type = $%d", len(args)))
	}
	if !filter.DepartureDate.IsZero() {
		from, to := dayBounds(filter.DepartureDate)
		args = append(args, from, to)
		conds = append(conds, fmt.Sprintf("departure_datetime >= $%d AND departure_datetime < $%d", len(args)-1, len(args)))
	}

	query := `SELECT ` + travelOptionColumns + ` FROM travel_options WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY departure_datetime, travel_id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search travel options: %w", err)
	}
	defer rows.Close()

	options := make([]domain.TravelOption, 0)
	for rows.Next() {
		t, err := scanTravelOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, *t)
	}
	return options, rows.Err()
}

func (r *PGTravelOptionRepository) GetByID(ctx context.Context, id int64) (*domain.TravelOption, error) {
	row := r.db.QueryRow(ctx, `SELECT `+travelOptionColumns+` FROM travel_options WHERE travel_id=$1`, id)
	return scanTravelOptionRow(row)
}

func (r *PGTravelOptionRepository) GetForUpdate(ctx context.Context, id int64) (*domain.TravelOption, error) {
	row := r.db.QueryRow(ctx, `SELECT `+travelOptionColumns+` FROM travel_options WHERE travel_id=$1 FOR UPDATE`, id)
	return scanTravelOptionRow(row)
}

func (r *PGTravelOptionRepository) SetAvailableSeats(ctx context.Context, id int64, seats int) error {
	res, err := r.db.Exec(ctx, `UPDATE travel_options SET available_seats=$2, updated_at=now() WHERE travel_id=$1`, id, seats)
	if err != nil {
		return fmt.Errorf("update available seats: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrTravelOptionNotFound
	}
	return nil
}

func (r *PGTravelOptionRepository) Create(ctx context.Context, t *domain.TravelOption) error {
	err := r.db.QueryRow(ctx, `INSERT INTO travel_options
		(travel_type, source, destination, departure_datetime, arrival_datetime, price, available_seats, total_seats, operator)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING travel_id, created_at, updated_at`,
		string(t.Type), t.Source, t.Destination, t.DepartureAt, t.ArrivalAt, t.Price.String(),
		t.AvailableSeats, t.TotalSeats, t.Operator).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert travel option: %w", err)
	}
	return nil
}

func (r *PGTravelOptionRepository) Cities(ctx context.Context, query string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT city FROM (
			SELECT source AS city FROM travel_options WHERE source ILIKE $1
			UNION
			SELECT destination AS city FROM travel_options WHERE destination ILIKE $1
		) c ORDER BY city LIMIT $2`, containsPattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search cities: %w", err)
	}
	defer rows.Close()

	cities := make([]string, 0, limit)
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func scanTravelOptionRow(row pgx.Row) (*domain.TravelOption, error) {
	t, err := scanTravelOption(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTravelOptionNotFound
	}
	return t, err
}

func scanTravelOption(row pgx.Row) (*domain.TravelOption, error) {
	var (
		t     domain.TravelOption
		price string
	)
	if err := row.Scan(&t.ID, &t.Type, &t.Source, &t.Destination, &t.DepartureAt, &t.ArrivalAt,
		&price, &t.AvailableSeats, &t.TotalSeats, &t.Operator, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price of travel option %d: %w", t.ID, err)
	}
	t.Price = p
	return &t, nil
}

// dayBounds returns [start of day, start of next day) in the date's location.
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return from, from.AddDate(0, 0, 1)
}

var (
	_ TravelOptionRepository = (*PGTravelOptionRepository)(nil)
	_ TxTravelOptions        = (*PGTravelOptionRepository)(nil)
)
