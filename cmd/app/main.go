package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Domenick1991/travelbooking/api"
	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/audit"
	"github.com/Domenick1991/travelbooking/internal/bootstrap"
	"github.com/Domenick1991/travelbooking/internal/cache"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/ledger"
	"github.com/Domenick1991/travelbooking/internal/logger"
	"github.com/Domenick1991/travelbooking/internal/migrations"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/Domenick1991/travelbooking/internal/repository/memory"
	"github.com/Domenick1991/travelbooking/internal/service/account"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
	"github.com/Domenick1991/travelbooking/internal/service/travel"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

type storage struct {
	tx       repository.Transactor
	travel   repository.TravelOptionRepository
	bookings repository.BookingRepository
	users    repository.UserRepository
	audit    audit.Source
	checks   map[string]api.HealthCheck
	close    func()
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Log, "travelbooking-api")
	gin.SetMode(cfg.HTTP.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer store.close()

	var searchCache travel.Cache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SearchCacheTTL())
		defer redisCache.Close()
		searchCache = redisCache
		store.checks["redis"] = redisCache.Ping
	}

	bookingOpts := []booking.BookingServiceOption{
		booking.WithPolicy(booking.Policy{
			MaxSeatsPerBooking: cfg.Booking.MaxSeatsPerBooking,
			CancellationWindow: cfg.Booking.CancellationWindow(),
		}),
		booking.WithAlertRetries(cfg.Kafka.AlertRetries),
	}
	var alertPublisher audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.AlertsTopic))
		alertPublisher = producer
		store.checks["kafka"] = producer.CheckConnection
	}

	var wg sync.WaitGroup
	if auditor := inProcessAuditor(store, cfg, alertPublisher, log); auditor != nil {
		interval := cfg.Worker.AuditInterval()
		log.WithField("interval", interval.String()).Info("in-process inventory audit started")
		wg.Add(1)
		go func() {
			defer wg.Done()
			auditor.Run(ctx, interval)
		}()
	}

	travelService := travel.NewTravelService(store.travel, searchCache, log)
	accountService := account.NewAccountService(store.users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL(), log,
		account.WithStaffUsernames(cfg.Auth.StaffUsernames...))
	bookingService := booking.NewBookingService(
		store.tx,
		store.bookings,
		store.travel,
		ledger.New(log),
		log,
		bookingOpts...,
	)

	router := api.NewRouter(
		api.RouterConfig{AllowedOrigins: cfg.CORS.AllowedOrigins, Checks: store.checks},
		api.Handlers{
			Accounts: api.NewAccountHandler(accountService),
			Travel:   api.NewTravelHandler(travelService),
			Bookings: api.NewBookingHandler(bookingService),
		},
		accountService,
		log,
	)

	if err := bootstrap.Run(ctx, cfg, router, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
	stop()
	wg.Wait()
}

// inProcessAuditor reconciles storage that the worker cannot reach. The
// postgres deployment leaves auditing to cmd/worker and gets nil.
func inProcessAuditor(store *storage, cfg *config.Config, publisher audit.Publisher, log logrus.FieldLogger) *audit.Auditor {
	if store.audit == nil {
		return nil
	}
	opts := []audit.Option{audit.WithRetries(cfg.Kafka.AlertRetries)}
	if publisher != nil {
		opts = append(opts, audit.WithPublisher(publisher, cfg.Kafka.AlertsTopic))
	}
	return audit.New(store.audit, log, opts...)
}

func openStorage(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			tx:       store,
			travel:   store.TravelOptions(),
			bookings: store.Bookings(),
			users:    store.Users(),
			audit:    store,
			checks:   map[string]api.HealthCheck{},
			close:    func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.Database.MigrateOnStart {
		db := stdlib.OpenDBFromPool(pool)
		err := migrations.Up(db, log)
		db.Close()
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &storage{
		tx:       repository.NewTransactor(pool),
		travel:   repository.NewTravelOptionRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		users:    repository.NewUserRepository(pool),
		checks:   map[string]api.HealthCheck{"postgres": pool.Ping},
		close:    pool.Close,
	}, nil
}
