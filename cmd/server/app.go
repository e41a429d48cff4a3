package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/salad-order-service/internal/adapter/amqp"
	"github.com/example/salad-order-service/internal/adapter/cache"
	"github.com/example/salad-order-service/internal/adapter/httpapi"
	"github.com/example/salad-order-service/internal/adapter/natsstan"
	"github.com/example/salad-order-service/internal/adapter/payment"
	"github.com/example/salad-order-service/internal/adapter/repo"
	"github.com/example/salad-order-service/internal/config"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	"github.com/example/salad-order-service/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type storage struct {
	orders  domain.OrderRepository
	slots   domain.SlotRepository
	history domain.StatusLog
	close   func()
}

type broker struct {
	events     domain.EventPublisher
	subscriber domain.MessageSubscriber
	close      func()
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := menu.Load()
	if err != nil {
		return err
	}
	pay, err := payment.New(cfg.Payment)
	if err != nil {
		return err
	}
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	bus, err := openBroker(cfg)
	if err != nil {
		return err
	}
	defer bus.close()

	orderCache := cache.NewMemoryOrderCache()
	if err := (usecase.LoadCache{Repo: store.orders, Cache: orderCache}).Execute(ctx); err != nil {
		return errors.Wrap(err, "load cache")
	}
	log.WithField("orders", orderCache.Len()).Info("cache warmed")

	h, err := newHandlers(cfg, cat, pay, store, bus.events, orderCache)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewServer(h).Router, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": cfg.HTTPAddr, "payment": cfg.Payment.Provider, "broker": cfg.Events.Broker}).
			Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if bus.subscriber != nil {
		g.Go(func() error {
			return bus.subscriber.Subscribe(gctx, h.UpdateStatus.Execute)
		})
	}
	return g.Wait()
}

func newHandlers(cfg config.Config, cat *menu.Catalog, pay domain.PaymentAdapter, store storage, events domain.EventPublisher, orderCache *cache.MemoryOrderCache) (httpapi.Handlers, error) {
	loc, err := cfg.Location()
	if err != nil {
		return httpapi.Handlers{}, err
	}
	return httpapi.Handlers{
		Create: usecase.CreateOrder{
			Repo:        store.orders,
			Slots:       store.slots,
			Payment:     pay,
			Cache:       orderCache,
			Catalog:     cat,
			AppURL:      cfg.AppURL,
			PricingMode: cfg.PricingMode,
		},
		Get:           usecase.GetOrderByID{Cache: orderCache, Repo: store.orders},
		History:       usecase.GetStatusHistory{Log: store.history},
		UpdateStatus:  usecase.ApplyStatusUpdate{Repo: store.orders, Cache: orderCache, Slots: store.slots, Events: events, Payment: pay},
		Webhook:       usecase.HandleWebhook{Payment: pay, Repo: store.orders, Slots: store.slots, Cache: orderCache, Events: events},
		PaymentStatus: usecase.GetPaymentStatus{Payment: pay},
		Slots: usecase.ListSlots{
			Repo: store.slots,
			Generator: usecase.SlotGenerator{
				Location:  loc,
				OpenHour:  cfg.Slots.OpenHour,
				CloseHour: cfg.Slots.CloseHour,
				Interval:  cfg.Slots.Interval,
				Days:      cfg.Slots.Days,
				Capacity:  cfg.Slots.Capacity,
			},
		},
		Quote:   usecase.QuoteSelection{Catalog: cat},
		Catalog: cat,
		Queue:   orderCache,
	}, nil
}

// openStorage uses Postgres when DATABASE_URL is set and process memory otherwise.
func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, orders are kept in memory")
		mem := repo.NewMemoryRepo()
		return storage{orders: mem, slots: mem, history: mem, close: func() {}}, nil
	}
	if err := repo.MigrateUp(cfg.DatabaseURL); err != nil {
		return storage{}, err
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return storage{}, errors.Wrap(err, "db connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return storage{}, errors.Wrap(err, "db ping")
	}
	orders := repo.NewPostgresOrderRepo(pool)
	return storage{
		orders:  orders,
		slots:   repo.NewPostgresSlotRepo(pool),
		history: orders,
		close:   pool.Close,
	}, nil
}

func openBroker(cfg config.Config) (broker, error) {
	ev := cfg.Events
	switch ev.Broker {
	case config.BrokerSTAN:
		sc, err := natsstan.Connect(ev.ClusterID, ev.ClientID, ev.NatsURL)
		if err != nil {
			return broker{}, err
		}
		return broker{
			events: natsstan.NewPublisher(sc, ev.EventsSubject, ev.PublishTimeout),
			subscriber: &natsstan.Subscriber{
				Conn:    sc,
				Subject: ev.StatusSubject,
				Durable: ev.Durable,
			},
			close: func() { _ = sc.Close() },
		}, nil
	case config.BrokerAMQP:
		p, err := amqp.Dial(ev.AMQPURL, ev.AMQPExchange)
		if err != nil {
			return broker{}, err
		}
		p.Timeout = ev.PublishTimeout
		return broker{events: p, close: func() { _ = p.Close() }}, nil
	}
	return broker{close: func() {}}, nil
}
