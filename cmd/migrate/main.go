// Command migrate manages the database schema with golang-migrate. The
// version is tracked in the schema_migrations table; re-running an applied
// migration is a no-op.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
)

const migrationTimeout = 5 * time.Minute

func main() {
	path := flag.String("path", getEnv("MIGRATIONS_PATH", "migrations"), "migrations directory")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [args]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  up [N]     apply all or N pending migrations\n")
		fmt.Fprintf(os.Stderr, "  down [N]   roll back all or N migrations\n")
		fmt.Fprintf(os.Stderr, "  version    print the current schema version\n")
		fmt.Fprintf(os.Stderr, "  force V    set version V without running migrations\n")
		fmt.Fprintf(os.Stderr, "  drop       drop every table\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nDatabase connection is read from the DB_* environment variables.\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	m, err := newMigrate(*path)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer m.Close()

	if err := run(m, args[0], args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(m *migrate.Migrate, cmd string, args []string) error {
	switch cmd {
	case "up", "down":
		steps := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid number of steps: %s", args[0])
			}
			steps = n
		}
		return step(m, cmd, steps)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Println("No migrations have been applied yet")
				return nil
			}
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		log.Printf("Current schema version: %d%s", version, suffix)
		return nil
	case "force":
		if len(args) < 1 {
			return errors.New("force requires a version number")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version: %s", args[0])
		}
		return m.Force(version)
	case "drop":
		log.Println("WARNING: this drops ALL tables. Type 'yes' to confirm:")
		var confirm string
		if _, err := fmt.Scanln(&confirm); err != nil || confirm != "yes" {
			log.Println("Aborted")
			return nil
		}
		return m.Drop()
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func step(m *migrate.Migrate, direction string, steps int) error {
	from, _, _ := m.Version()

	var err error
	switch {
	case steps > 0 && direction == "up":
		err = m.Steps(steps)
	case steps > 0:
		err = m.Steps(-steps)
	case direction == "up":
		err = m.Up()
	default:
		err = m.Down()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("Schema already up to date")
			return nil
		}
		return err
	}

	to, _, _ := m.Version()
	log.Printf("Migrated: %d -> %d", from, to)
	return nil
}

func newMigrate(path string) (*migrate.Migrate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	cfg := config.Load()
	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating database driver: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving migrations path: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+abs, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	m.LockTimeout = migrationTimeout
	return m, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
