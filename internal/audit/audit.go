// Package audit reconciles seat counters against confirmed bookings and
// raises an alert for every travel option that disagrees.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"
)

const discrepancyQuery = `SELECT t.travel_id, t.total_seats, t.available_seats,
	COALESCE(SUM(b.number_of_seats) FILTER (WHERE b.status = 'confirmed'), 0) AS confirmed_seats
FROM travel_options t
LEFT JOIN bookings b ON b.travel_option_id = t.travel_id
GROUP BY t.travel_id
HAVING t.available_seats < 0
	OR t.available_seats > t.total_seats
	OR t.total_seats - t.available_seats <> COALESCE(SUM(b.number_of_seats) FILTER (WHERE b.status = 'confirmed'), 0)
ORDER BY t.travel_id`

type Source interface {
	Discrepancies(ctx context.Context) ([]domain.InventoryDiscrepancy, error)
}

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

const DefaultRetries = 3

type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

func (s *SQLSource) Discrepancies(ctx context.Context) ([]domain.InventoryDiscrepancy, error) {
	rows, err := s.db.QueryContext(ctx, discrepancyQuery)
	if err != nil {
		return nil, fmt.Errorf("query inventory discrepancies: %w", err)
	}
	defer rows.Close()

	out := make([]domain.InventoryDiscrepancy, 0)
	for rows.Next() {
		var d domain.InventoryDiscrepancy
		if err := rows.Scan(&d.TravelOptionID, &d.TotalSeats, &d.AvailableSeats, &d.ConfirmedSeats); err != nil {
			return nil, fmt.Errorf("scan inventory discrepancy: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type Auditor struct {
	source    Source
	publisher Publisher
	topic     string
	retries   int
	clock     clock.Clock
	log       logrus.FieldLogger
}

type Option func(*Auditor)

func WithPublisher(p Publisher, topic string) Option {
	return func(a *Auditor) {
		a.publisher = p
		a.topic = topic
	}
}

// WithRetries sets how many times an alert is offered to the publisher.
func WithRetries(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.retries = n
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(a *Auditor) {
		a.clock = c
	}
}

func New(source Source, log logrus.FieldLogger, opts ...Option) *Auditor {
	a := &Auditor{source: source, retries: DefaultRetries, clock: clock.New(), log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Check runs one reconciliation pass. Every discrepancy is logged at error
// level and, when a publisher is set, sent to the alerts topic.
func (a *Auditor) Check(ctx context.Context) ([]domain.InventoryDiscrepancy, error) {
	found, err := a.source.Discrepancies(ctx)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	for _, d := range found {
		a.log.WithFields(logrus.Fields{
			"travel_option_id": d.TravelOptionID,
			"total_seats":      d.TotalSeats,
			"available_seats":  d.AvailableSeats,
			"confirmed_seats":  d.ConfirmedSeats,
		}).Error("inventory discrepancy detected")

		if a.publisher == nil || a.topic == "" {
			continue
		}
		alert := kafka.NewAuditAlert(d, now)
		if err := a.publisher.PublishWithRetry(ctx, a.topic, alert.Key(), alert, a.retries); err != nil {
			a.log.WithError(err).WithField("travel_option_id", d.TravelOptionID).Error("failed to publish inventory alert")
		}
	}
	return found, nil
}

// Run checks immediately and then every interval until ctx is done.
func (a *Auditor) Run(ctx context.Context, interval time.Duration) {
	ticker := a.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		if found, err := a.Check(ctx); err != nil {
			a.log.WithError(err).Warn("inventory audit failed")
		} else {
			a.log.WithField("discrepancies", len(found)).Debug("inventory audit finished")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
