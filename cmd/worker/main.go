package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/audit"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Log, "travelbooking-worker")

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatal("worker audits the shared database and requires the postgres driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	auditOpts := []audit.Option{audit.WithRetries(cfg.Kafka.AlertRetries)}
	var wg sync.WaitGroup

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		auditOpts = append(auditOpts, audit.WithPublisher(producer, cfg.Kafka.AlertsTopic))

		alerts := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-alerts", cfg.Kafka.AlertsTopic)
		defer alerts.Close()
		events := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-events", cfg.Kafka.BookingEventsTopic)
		defer events.Close()

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := alerts.Consume(ctx, alertHandler(log)); err != nil {
				log.WithError(err).Error("alerts consumer stopped")
			}
		}()
		go func() {
			defer wg.Done()
			if err := events.Consume(ctx, eventHandler(log)); err != nil {
				log.WithError(err).Error("booking events consumer stopped")
			}
		}()
	}

	auditor := audit.New(audit.NewSQLSource(db), log, auditOpts...)
	interval := cfg.Worker.AuditInterval()
	log.WithField("interval", interval.String()).Info("inventory audit started")
	auditor.Run(ctx, interval)

	wg.Wait()
	log.Info("worker stopped")
}

func alertHandler(log logrus.FieldLogger) func(context.Context, kafkaGo.Message) error {
	return func(_ context.Context, msg kafkaGo.Message) error {
		alert, err := kafka.DecodeAlert(msg)
		if err != nil {
			log.WithError(err).Warn("skipping undecodable alert")
			return nil
		}
		log.WithFields(logrus.Fields{
			"alert_id":         alert.ID,
			"reason":           alert.Reason,
			"travel_option_id": alert.TravelOptionID,
			"booking_id":       alert.BookingID,
			"available_seats":  alert.Available,
			"total_seats":      alert.Total,
		}).Error("inventory alert received")
		return nil
	}
}

func eventHandler(log logrus.FieldLogger) func(context.Context, kafkaGo.Message) error {
	return func(_ context.Context, msg kafkaGo.Message) error {
		event, err := kafka.DecodeBookingEvent(msg)
		if err != nil {
			log.WithError(err).Warn("skipping undecodable booking event")
			return nil
		}
		log.WithFields(logrus.Fields{
			"event_id":         event.ID,
			"type":             event.Type,
			"booking_id":       event.BookingID,
			"travel_option_id": event.TravelOptionID,
			"seats":            event.Seats,
		}).Info("booking event received")
		return nil
	}
}
