// seed populates a development database with a tenant, a staff user, a
// manager, a few riders, a shelf of slots, and prepared orders. Safe to run
// more than once: an existing staff user means the database is already seeded.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"locker-pickup-control-plane/backend/internal/config"
	"locker-pickup-control-plane/backend/internal/db"
	"locker-pickup-control-plane/backend/internal/db/migrate"
	orderdomain "locker-pickup-control-plane/backend/internal/order/domain"
	orderrepo "locker-pickup-control-plane/backend/internal/order/repository"
	riderdomain "locker-pickup-control-plane/backend/internal/rider/domain"
	riderrepo "locker-pickup-control-plane/backend/internal/rider/repository"
	"locker-pickup-control-plane/backend/internal/security"
	slotdomain "locker-pickup-control-plane/backend/internal/slot/domain"
	slotrepo "locker-pickup-control-plane/backend/internal/slot/repository"
	userdomain "locker-pickup-control-plane/backend/internal/user/domain"
	userrepo "locker-pickup-control-plane/backend/internal/user/repository"
)

const (
	tenantID   = "dev-tenant"
	siteID     = "site-1"
	shelfID    = "shelf-1"
	staffEmail = "staff@example.com"
	slotCount  = 8
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
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
	users := userrepo.NewPostgresRepository(conn)
	riders := riderrepo.NewPostgresRepository(conn)
	orders := orderrepo.NewPostgresRepository(conn)
	slots := slotrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, tenantID, staffEmail)
	if err != nil {
		log.Fatalf("check staff user: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", staffEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	now := time.Now().UTC()

	seedUser(ctx, users, hasher, now, staffEmail, "Dev Staff", "+971500000001", userdomain.RoleStaff)
	seedUser(ctx, users, hasher, now, "manager@example.com", "Dev Manager", "+971500000002", userdomain.RoleManager)

	riderIDs := make([]string, 0, 3)
	for _, r := range []struct {
		platform, name, phone string
	}{
		{string(orderdomain.PlatformTalabat), "Rider One", "+971500000101"},
		{string(orderdomain.PlatformCareem), "Rider Two", "+971500000102"},
		{string(orderdomain.PlatformDeliveroo), "Rider Three", "+971500000103"},
	} {
		rd := &riderdomain.Rider{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			Platform:    r.platform,
			ExternalRef: "ext-" + rd8(),
			Name:        r.name,
			Phone:       r.phone,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := riders.Create(ctx, rd); err != nil {
			log.Fatalf("create rider %s: %v", r.name, err)
		}
		riderIDs = append(riderIDs, rd.ID)
	}

	for i := 1; i <= slotCount; i++ {
		s := &slotdomain.Slot{
			ID:        uuid.New().String(),
			ShelfID:   shelfID,
			SiteID:    siteID,
			TenantID:  tenantID,
			Index:     i,
			State:     slotdomain.StateEmpty,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := slots.Create(ctx, s); err != nil {
			log.Fatalf("create slot %d: %v", i, err)
		}
	}

	platforms := []orderdomain.Platform{
		orderdomain.PlatformTalabat,
		orderdomain.PlatformCareem,
		orderdomain.PlatformDeliveroo,
	}
	for i, platform := range platforms {
		o := &orderdomain.Order{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			SiteID:      siteID,
			ExternalRef: "ext-" + rd8(),
			Platform:    platform,
			RiderID:     riderIDs[i],
			Status:      orderdomain.StatusPrepared,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := orders.Create(ctx, o); err != nil {
			log.Fatalf("create order %d: %v", i, err)
		}
	}

	log.Printf("seed: tenant %s ready (%d slots, %d riders, %d prepared orders)",
		tenantID, slotCount, len(riderIDs), len(platforms))
	log.Printf("seed: staff login %s / password", staffEmail)
}

func seedUser(ctx context.Context, users *userrepo.PostgresRepository, hasher *security.Hasher, now time.Time, email, name, phone string, role userdomain.Role) {
	hash, err := hasher.Hash([]byte("password"))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	u := &userdomain.User{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("create user %s: %v", email, err)
	}
}

func rd8() string {
	return uuid.New().String()[:8]
}
