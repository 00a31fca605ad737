// Command poolrun runs a worker pool fed by cron schedules and, optionally, a
// Redis list. Pool, scheduler and feed metrics are served on /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/workerpool/internal/config"
	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
	"github.com/vnykmshr/workerpool/pkg/feed/redisfeed"
	"github.com/vnykmshr/workerpool/pkg/metrics"
	"github.com/vnykmshr/workerpool/pkg/scheduling/scheduler"
	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON configuration file")
	workers := flag.Int("workers", -1, "number of workers, overriding the configuration file")
	metricsAddr := flag.String("metrics-addr", "", "listen address for /metrics, overriding the configuration file")
	flag.Parse()

	log.SetPrefix("poolrun: ")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if *workers >= 0 {
		cfg.Pool.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("Exiting: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.File) error {
	var (
		promReg *prometheus.Registry
		reg     *metrics.Registry
	)
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		reg = metrics.NewRegistryWithConfig(metrics.Config{
			Enabled:   true,
			Registry:  promReg,
			Namespace: cfg.Metrics.Namespace,
		})
	}

	poolCfg, err := cfg.ToPoolConfig(reg)
	if err != nil {
		return err
	}
	poolCfg.PanicHandler = func(workerID int, recovered interface{}, stack []byte) {
		log.Printf("Worker %d: job panicked: %v\n%s", workerID, recovered, stack)
	}
	poolCfg.OnWorkerStop = func(workerID int) {
		log.Printf("Worker %d stopped", workerID)
	}

	pool, err := workerpool.NewWithConfig(poolCfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	log.Printf("Pool %q started with %d workers", pool.Name(), pool.Size())

	var srv *http.Server
	if promReg != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{Registry: promReg}))
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("Metrics server listening on %s/metrics", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server failed: %v", err)
			}
		}()
	}

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	feedDone := make(chan struct{})

	var producer *redisfeed.Producer
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		producer = redisfeed.NewProducer(rdb, cfg.Redis.Key)
		consumer, err := newConsumer(pool, rdb, cfg, reg)
		if err != nil {
			return err
		}
		go func() {
			defer close(feedDone)
			log.Printf("Consuming %s from %s", cfg.Redis.Key, cfg.Redis.Addr)
			_ = consumer.Run(feedCtx)
		}()
	} else {
		close(feedDone)
	}

	sched, err := scheduler.NewWithConfig(pool, scheduler.Config{
		Name:    cfg.Pool.Name,
		Metrics: reg,
		OnSubmitError: func(id string, err error) {
			log.Printf("Schedule %s: submit failed: %v", id, err)
		},
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	for _, s := range cfg.Schedules {
		if err := addSchedule(sched, s, producer, log.Printf); err != nil {
			return fmt.Errorf("schedule %s: %w", s.ID, err)
		}
	}
	sched.Start()
	log.Printf("Scheduler started with %d schedules", len(cfg.Schedules))

	<-ctx.Done()
	log.Println("Shutting down...")

	<-sched.Stop()
	stopFeed()
	<-feedDone

	timeout, err := cfg.Pool.ShutdownTimeout()
	if err != nil {
		return err
	}
	drainErr := drainPool(pool, timeout)
	if drainErr != nil {
		log.Printf("Pool did not drain: %v", drainErr)
	} else {
		log.Printf("Pool drained: %d jobs executed", pool.TotalExecuted())
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Metrics server shutdown error: %v", err)
		}
	}

	log.Println("Shutdown complete")
	return drainErr
}

// drainPool shuts pool down and waits up to timeout for its workers to exit.
func drainPool(pool *workerpool.WorkerPool, timeout time.Duration) error {
	select {
	case <-pool.Shutdown():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("pool %q with %d jobs queued after %v: %w",
			pool.Name(), pool.QueueSize(), timeout, gferrors.ErrTimeout)
	}
}

func newConsumer(pool *workerpool.WorkerPool, rdb redis.UniversalClient, cfg *config.File, reg *metrics.Registry) (*redisfeed.Consumer, error) {
	poll, err := cfg.Redis.PollTimeoutDuration()
	if err != nil {
		return nil, err
	}
	consumer, err := redisfeed.NewConsumer(pool, redisfeed.Config{
		Redis:       rdb,
		Key:         cfg.Redis.Key,
		PollTimeout: poll,
		OnError: func(err error) {
			log.Printf("Feed: %v", err)
		},
		Metrics: reg,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	if err := registerHandlers(consumer, log.Printf); err != nil {
		return nil, err
	}
	return consumer, nil
}
