// migrate applies the embedded schema migrations: go run ./cmd/migrate [-direction down]
package main

import (
	"flag"
	"log"

	"locker-pickup-control-plane/backend/internal/config"
	"locker-pickup-control-plane/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("migrations %s complete", *direction)
}
