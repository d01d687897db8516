// Command migrate applies the schema migrations for the analytics database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		dbURL     string
		path      string
		direction string
		steps     int
	)

	flag.StringVar(&dbURL, "db", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&path, "path", "./migrations", "Path to the migrations directory")
	flag.StringVar(&direction, "direction", "up", "Migration direction: up or down")
	flag.IntVar(&steps, "steps", 0, "Number of steps to apply (0 means all)")
	flag.Parse()

	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	if err := run(dbURL, path, direction, steps); err != nil {
		log.Fatal(err)
	}
}

func run(dbURL, path, direction string, steps int) error {
	if dbURL == "" {
		return errors.New("database URL must be provided via -db flag or DATABASE_URL")
	}

	m, err := migrate.New("file://"+path, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("invalid direction %q (must be up or down)", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("migrations applied, schema at no version")
	case err != nil:
		return fmt.Errorf("read migration version: %w", err)
	default:
		log.Printf("migrations applied, schema at version %d (dirty: %t)", version, dirty)
	}

	return nil
}
