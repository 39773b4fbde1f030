// Command migrate applies or rolls back the database schema using the
// SQL files under db/migrations.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/numeraire/swissknife-go/internal/config"
)

func main() {
	upFlag := flag.Bool("up", false, "Migrate up")
	downFlag := flag.Bool("down", false, "Migrate down")
	versionFlag := flag.Int("version", 0, "Migrate to specific version")
	envFlag := flag.String("env", "", "Run mode config overlay, e.g. production")
	flag.Parse()

	cfg, err := config.Load(*envFlag)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	m, err := migrate.New("file://db/migrations", dbURL)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch {
	case *upFlag:
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("failed to migrate up: %v", err)
		}
		log.Println("migration up completed successfully")
	case *downFlag:
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("failed to migrate down: %v", err)
		}
		log.Println("migration down completed successfully")
	case *versionFlag > 0:
		if err := m.Migrate(uint(*versionFlag)); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("failed to migrate to version %d: %v", *versionFlag, err)
		}
		log.Printf("migration to version %d completed successfully", *versionFlag)
	default:
		log.Println("no migration action specified; use -up, -down, or -version")
		os.Exit(1)
	}
}
