// server is the pickup control plane: it wires the durable store, the
// coordination store, the device channel, and the workflow services, then runs
// until interrupted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"locker-pickup-control-plane/backend/internal/audit"
	auditrepo "locker-pickup-control-plane/backend/internal/audit/repository"
	"locker-pickup-control-plane/backend/internal/audit/stream"
	"locker-pickup-control-plane/backend/internal/auth"
	"locker-pickup-control-plane/backend/internal/auth/sms"
	"locker-pickup-control-plane/backend/internal/config"
	"locker-pickup-control-plane/backend/internal/coordstore"
	"locker-pickup-control-plane/backend/internal/db"
	"locker-pickup-control-plane/backend/internal/db/migrate"
	"locker-pickup-control-plane/backend/internal/device"
	"locker-pickup-control-plane/backend/internal/jobs"
	"locker-pickup-control-plane/backend/internal/orchestrator"
	orderrepo "locker-pickup-control-plane/backend/internal/order/repository"
	"locker-pickup-control-plane/backend/internal/platform"
	riderrepo "locker-pickup-control-plane/backend/internal/rider/repository"
	"locker-pickup-control-plane/backend/internal/security"
	slotrepo "locker-pickup-control-plane/backend/internal/slot/repository"
	"locker-pickup-control-plane/backend/internal/token"
	userrepo "locker-pickup-control-plane/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	var store coordstore.Store
	if cfg.RedisAddr != "" {
		redisStore, err := coordstore.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("coordination store: %v", err)
		}
		store = redisStore
	} else {
		log.Println("REDIS_ADDR not set; using in-process coordination store (single instance only)")
		store = coordstore.NewMemoryStore()
	}
	defer store.Close()
	keys := coordstore.NewKeys(cfg.KeyPrefix)

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTKeyID, cfg.JWTIssuer, cfg.Skew())
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(conn)
	riders := riderrepo.NewPostgresRepository(conn)
	orders := orderrepo.NewPostgresRepository(conn)
	slots := slotrepo.NewPostgresRepository(conn)
	events := auditrepo.NewPostgresRepository(conn)

	var mirror stream.Producer
	if producer := stream.NewKafkaProducer(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic); producer != nil {
		defer producer.Close()
		mirror = producer
	}
	ledger := audit.NewWriter(events, mirror)

	tokenService := token.NewService(tokens, store, keys, ledger, cfg.Skew())

	var sender sms.Sender
	if cfg.SMSBaseURL != "" && cfg.SMSAPIKey != "" {
		sender = sms.NewHTTPClient(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender)
	}
	authService := auth.NewService(users, riders, tokenService, hasher, tokens, store, keys, ledger, sender,
		cfg.SessionTokenTTL(), cfg.MagicLinkWindow(), cfg.StepUpWindow())

	gateway, channel, err := buildGateway(cfg)
	if err != nil {
		log.Fatalf("device channel: %v", err)
	}
	if channel != nil {
		defer channel.Close()
	}

	orch := orchestrator.New(orders, slots, tokenService, gateway,
		orchestrator.AuthorizerAndStepUp{
			Platform: platform.NewBoundRiderAuthorizer(riders),
			StepUp:   authService,
		},
		store, keys, ledger, orchestrator.Options{
			ReservationTTL:   cfg.ReservationLease(),
			UnlockTokenTTL:   cfg.UnlockTTL(),
			CollectionWindow: cfg.Collection(),
			RateLimit:        cfg.UnlockRateLimit,
			RateWindow:       cfg.RateWindow(),
		})

	if channel != nil {
		if err := gateway.Register(device.AllEventsPattern(), orch.HandleDeviceEvent); err != nil {
			log.Fatalf("subscribe device events: %v", err)
		}
	}

	tenants := cfg.TenantList()
	if len(tenants) == 0 {
		log.Println("TENANT_IDS not set; background sweeps are disabled")
	}
	var health *jobs.DeviceHealthJob
	if channel != nil && len(tenants) > 0 {
		health = jobs.NewDeviceHealthJob(slots, gateway, store, keys, ledger, tenants)
	}
	manager := jobs.NewManager(
		jobs.NewReservationSweepJob(orch, tenants),
		jobs.NewAuditRetentionJob(events, cfg.AuditRetentionDays),
		health,
	)
	if err := manager.StartAll(); err != nil {
		log.Fatalf("jobs: %v", err)
	}

	log.Printf("pickup control plane up (env=%s)", cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	manager.StopAll()
	log.Println("stopped")
}

// buildGateway returns the command gateway and its channel. Without a broker
// URL the gateway runs over a disconnected channel that fails every publish;
// workflows that treat dispatch as best-effort keep working.
func buildGateway(cfg *config.Config) (*device.Gateway, *device.MQTTChannel, error) {
	if cfg.MQTTBrokerURL == "" {
		log.Println("MQTT_BROKER_URL not set; device commands are disabled")
		gw := device.NewGateway(device.Disconnected{}, cfg.UnlockTTL())
		return gw, nil, nil
	}
	var gw *device.Gateway
	channel, err := device.NewMQTTChannel(cfg.MQTTBrokerURL, cfg.MQTTClientID, func(m device.Message) {
		gw.HandleMessage(m)
	})
	if err != nil {
		return nil, nil, err
	}
	gw = device.NewGateway(channel, cfg.UnlockTTL())
	return gw, channel, nil
}
