package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Reservas-api/internal/application/order"
	"github.com/jhoicas/Reservas-api/internal/application/ports"
	"github.com/jhoicas/Reservas-api/internal/application/reservation"
	"github.com/jhoicas/Reservas-api/internal/domain/repository"
	infrabadger "github.com/jhoicas/Reservas-api/internal/infrastructure/badger"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/events"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/payment"
	"github.com/jhoicas/Reservas-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Reservas-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/Reservas-api/internal/interfaces/http"
	"github.com/jhoicas/Reservas-api/pkg/config"
	"github.com/jhoicas/Reservas-api/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	badgerGCEvery   = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("state_backend", cfg.Reservation.StateBackend).
		Str("ledger_backend", cfg.Reservation.LedgerBackend).
		Str("payment_mode", cfg.Payment.Mode).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("aplicación detenida con error")
	}
	log.Info().Msg("aplicación detenida")
}

// backends conexiones abiertas según la configuración; close las libera en orden inverso.
type backends struct {
	pool   *pgxpool.Pool
	rdb    *goredis.Client
	badger *badger.DB
	kafka  *events.KafkaPublisher
}

func (b *backends) close(log zerolog.Logger) {
	if b.kafka != nil {
		if err := b.kafka.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar writer de Kafka")
		}
	}
	if b.badger != nil {
		if err := b.badger.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar badger")
		}
	}
	if b.rdb != nil {
		_ = b.rdb.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET es obligatorio")
	}

	b := &backends{}
	defer b.close(log.Zerolog())

	if cfg.UsesPostgres() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		b.pool = pool
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
	}
	if cfg.UsesRedis() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		b.rdb = rdb
	}

	ledger := stockLedger(cfg, b)
	store, err := stateStore(cfg, b, log)
	if err != nil {
		return err
	}

	var orders repository.OrderRepository = memory.NewOrderRepository()
	if b.pool != nil {
		orders = postgres.NewOrderRepository(b.pool)
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(log.Zerolog())
	if cfg.Kafka.Enabled() {
		b.kafka = events.NewKafkaPublisher(cfg.Kafka)
		publisher = b.kafka
	}

	gw := reservation.NewGateway(ledger, store, reservation.Options{
		TTL:             cfg.Reservation.TTL,
		SyncInterval:    cfg.Reservation.SyncInterval,
		CleanupInterval: cfg.Reservation.CleanupInterval,
		IdleEvict:       cfg.Reservation.IdleEvict,
	}, log.Zerolog())

	saga := order.NewSaga(orders, gw, payments(cfg), publisher, order.Config{
		StepTimeout: cfg.Saga.StepTimeout,
	}, log.Zerolog())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName:  cfg.App.Name,
		Reservations: gw,
		Orders:       saga,
		JWTSecret:    cfg.JWT.Secret,
		ServiceKey:   cfg.Reservation.ServiceKey,
	})

	g, gctx := errgroup.WithContext(ctx)

	gw.Start(gctx)
	if b.badger != nil {
		g.Go(func() error {
			infrabadger.RunGC(gctx, b.badger, badgerGCEvery, log.Component("badger"))
			return nil
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			return fmt.Errorf("servidor HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("apagado del servidor")
		}
		gw.Close()
		gw.Wait()
		return nil
	})

	return g.Wait()
}

func stockLedger(cfg *config.Config, b *backends) repository.StockLedger {
	switch cfg.Reservation.LedgerBackend {
	case config.BackendRedis:
		return infraredis.NewStockLedger(b.rdb)
	case config.BackendMemory:
		return memory.NewStockLedger()
	default:
		return postgres.NewStockLedger(b.pool)
	}
}

func stateStore(cfg *config.Config, b *backends, log *logger.Logger) (repository.ReservationStateRepository, error) {
	switch cfg.Reservation.StateBackend {
	case config.BackendRedis:
		return infraredis.NewStateStore(b.rdb), nil
	case config.BackendBadger:
		db, err := infrabadger.Open(cfg.Reservation.BadgerPath, log.Component("badger"))
		if err != nil {
			return nil, err
		}
		b.badger = db
		return infrabadger.NewStateStore(db), nil
	case config.BackendMemory:
		return memory.NewReservationStateRepository(), nil
	default:
		return postgres.NewReservationStateRepository(b.pool), nil
	}
}

func payments(cfg *config.Config) ports.PaymentGateway {
	if cfg.Payment.Mode == config.PaymentModeDev {
		return payment.NewDevGateway(cfg.Payment.ReturnURL)
	}
	return payment.NewPayPalClient(payment.PayPalConfig{
		ClientID:  cfg.Payment.ClientID,
		Secret:    cfg.Payment.Secret,
		Live:      cfg.Payment.Mode == config.PaymentModeLive,
		ReturnURL: cfg.Payment.ReturnURL,
		CancelURL: cfg.Payment.CancelURL,
	})
}
