package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/madirex/funkos-orders/internal/health"
	"github.com/madirex/funkos-orders/internal/messaging/kafka"
	"github.com/madirex/funkos-orders/internal/metrics"
	"github.com/madirex/funkos-orders/internal/service/order"
	"github.com/madirex/funkos-orders/internal/service/outbox"
	"github.com/madirex/funkos-orders/internal/version"
)

// Runtime — собранное приложение: сервис заказов, воркер outbox и
// HTTP-endpoint метрик и health checks. Транспортный слой (REST/gRPC)
// подключается поверх Runtime.Service.
type Runtime struct {
	Service *order.Service
	Metrics *metrics.OrderMetrics

	cfg           Config
	logger        *log.Entry
	deps          *runtimeDependencies
	kafkaProducer *kafka.Producer
	worker        *outbox.Worker
	healthHandler *healthcheck.Handler
}

// NewRuntime создаёт и связывает все зависимости приложения.
func NewRuntime(ctx context.Context, cfg Config) (*Runtime, error) {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	orderMetrics := metrics.NewOrderMetrics()
	service := order.NewService(
		deps.Orders,
		deps.Products,
		order.WithLogger(logger.WithField("layer", "service")),
		order.WithOutbox(deps.OutboxRepo),
		order.WithMetrics(orderMetrics),
	)

	// Kafka опционален: без брокера события копятся в outbox.
	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		kafkaProducer = nil
	}

	var worker *outbox.Worker
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.OutboxTopic)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker = outbox.NewWorker(
			deps.OutboxRepo,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
	} else {
		logger.Info("kafka is not configured, outbox worker is disabled")
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}

	return &Runtime{
		Service:       service,
		Metrics:       orderMetrics,
		cfg:           cfg,
		logger:        logger,
		deps:          deps,
		kafkaProducer: kafkaProducer,
		worker:        worker,
		healthHandler: healthHandler,
	}, nil
}

// Run блокируется до отмены ctx, обслуживая метрики, health checks
// и публикацию outbox.
func (r *Runtime) Run(ctx context.Context) error {
	metricsSrv := startMetricsServer(ctx, r.cfg.MetricsAddr, r.logger, r.healthHandler)

	workerDone := make(chan struct{})
	if r.worker != nil {
		go func() {
			defer close(workerDone)
			r.worker.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	<-ctx.Done()
	r.logger.Info("получен сигнал остановки, останавливаем приложение")

	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		r.logger.Warn("outbox worker не остановился за таймаут")
	}

	shutdownHTTP(metricsSrv, r.logger)
	return ctx.Err()
}

// Close освобождает ресурсы приложения.
func (r *Runtime) Close() {
	closeKafka(r.kafkaProducer, r.logger)
	if r.deps != nil && r.deps.closeFn != nil {
		if err := r.deps.closeFn(); err != nil {
			r.logger.WithError(err).Warn("failed to close storage")
		}
	}
}

// Run собирает Runtime и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	runtime, err := NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer runtime.Close()
	return runtime.Run(ctx)
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
