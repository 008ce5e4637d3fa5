package main

import (
	"runtime"
	"runtime/debug"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"payment-router/domain/payment"
	"payment-router/infrastructure/config"
	"payment-router/infrastructure/database"
	"payment-router/infrastructure/queue"
	"payment-router/infrastructure/service"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	debug.SetGCPercent(500)

	log.SetLevel(log.LevelError)

	cfg := config.Load()

	fiberCfg := fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		Concurrency:           2048,
		DisableStartupMessage: true,
		EnablePrintRoutes:     false,
		ReduceMemoryUsage:     false,
		BodyLimit:             1 * 1024 * 1024,
		StreamRequestBody:     true,
		DisableKeepalive:      false,
	}
	api := fiber.New(fiberCfg)

	intake, err := buildIntake(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer intake.Close()

	ledger, err := buildLedger(cfg)
	if err != nil {
		log.Fatal(err)
	}

	inflight := payment.NewInflight()
	failed := payment.NewFailedStore()

	var peer *payment.PeerClient
	if cfg.PeerURL != "" {
		peer = payment.NewPeerClient(cfg.PeerURL, cfg.SubmitTimeout)
	}

	defaultClient := service.NewProcessorClient(
		service.ProcessorTypeDefault, cfg.DefaultProcessorURL, cfg.SubmitTimeout, cfg.AttemptsPerProcessor,
	)
	fallbackClient := service.NewProcessorClient(
		service.ProcessorTypeFallback, cfg.FallbackProcessorURL, cfg.SubmitTimeout, cfg.AttemptsPerProcessor,
	)

	monitor := service.NewHealthMonitor(
		defaultClient, fallbackClient,
		cfg.HealthCheckInterval, cfg.HealthProbeTimeout, cfg.HealthMaxBackoff,
	)
	monitor.Start()
	defer monitor.Stop()

	consumer := payment.NewConsumer(intake, ledger, monitor, defaultClient, fallbackClient, inflight, failed, payment.ConsumerConfig{
		WorkerCount:  cfg.WorkerCount,
		MaxPasses:    cfg.MaxPasses,
		RequeueDelay: cfg.RequeueDelay,
		Selector: service.SelectorConfig{
			LatencyMultiplier: cfg.LatencyMultiplier,
			StalenessWindow:   cfg.StalenessWindow,
		},
	})
	defer consumer.Close()

	go func() {
		if err := consumer.StartProcess(); err != nil {
			log.Fatal(err)
		}
	}()

	payment.NewController(intake, ledger, inflight, failed, peer).InitRoutes(api)

	if err = api.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatal(err)
	}
}

func buildIntake(cfg *config.Config) (queue.IntakeQueue, error) {
	if cfg.IntakeBackend == "nats" {
		return queue.NewNatsQueue(queue.NatsConfig{
			URL:           cfg.NatsURL,
			MaxAckPending: cfg.NatsMaxAckPending,
			MaxDeliver:    cfg.MaxPasses,
			AckWait:       cfg.NatsAckWait,
		})
	}
	return queue.NewMemoryQueue(cfg.QueueCapacity), nil
}

func buildLedger(cfg *config.Config) (payment.ILedger, error) {
	switch cfg.LedgerBackend {
	case "redis":
		client, err := database.NewRedis()
		if err != nil {
			return nil, err
		}
		return payment.NewRedisLedger(client), nil
	case "postgres":
		db, err := database.NewPostgres()
		if err != nil {
			return nil, err
		}
		return payment.NewPostgresLedger(db)
	default:
		return payment.NewMemoryLedger(), nil
	}
}
